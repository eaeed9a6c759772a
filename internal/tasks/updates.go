package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchState Phase = iota
	ResolveMetadata
	ExportQueue
)

func (p Phase) String() string {
	switch p {
	case FetchState:
		return "fetch_state"
	case ResolveMetadata:
		return "resolve_metadata"
	case ExportQueue:
		return "export_queue"
	default:
		return ""
	}
}

func fetchStateUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchState,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching live state for %s...", name),
	}
}

func resolveUpdate(step, total int, id string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s", step, total, id)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err)
	}
	return ProgressUpdate{
		Phase:   ResolveMetadata,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func exportCompletedUpdate(step, total int, name, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportQueue,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, name, path),
		Data:    path,
	}
}

func exportFailedUpdate(step, total int, name, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportQueue,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, name, reason),
	}
}
