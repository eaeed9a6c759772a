// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/colisten/internal/models"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, markdown, csv, json)",
		Value:   "text",
	}
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "owner",
		Usage:    "Email of the room owner",
		Sources:  cli.EnvVars("COLISTEN_EMAIL"),
		Required: true,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a starter config.toml at --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the HTTP and websocket server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the room server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] host and port)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Realtime backend (memory or redis)",
			},
		},
		Action: r.Serve,
	}
}

// roomCommand manages rooms in the local database.
func roomCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "room",
		Aliases: []string{"rooms"},
		Usage:   "Create, find and inspect rooms",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a room",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Room mode (youtube or spotify)",
						Value: string(models.ModeYouTube),
					},
					formatFlag(),
				},
				Action: r.RoomCreate,
			},
			{
				Name:  "list",
				Usage: "List rooms owned by a user",
				Flags: []cli.Flag{
					ownerFlag(),
					formatFlag(),
				},
				Action: r.RoomList,
			},
			{
				Name:  "join",
				Usage: "Look up a room by join code",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "code"},
				},
				Flags:  []cli.Flag{formatFlag()},
				Action: r.RoomJoin,
			},
			{
				Name:  "show",
				Usage: "Show a room's live queue from the server",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "room"},
				},
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the queue to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Write the queue to {join code}_queue.{ext}",
					},
				},
				Action: r.RoomShow,
			},
			{
				Name:  "export",
				Usage: "Export the queue of every room you own",
				Flags: []cli.Flag{
					ownerFlag(),
					formatFlag(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Output directory (default: colisten_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Rooms exported concurrently",
						Value: 4,
					},
				},
				Action: r.RoomExport,
			},
		},
	}
}

// listenCommand joins a room in the terminal UI.
func listenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "listen",
		Aliases: []string{"ui", "tui"},
		Usage:   "Join a room and listen along",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "room"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Display name shown to the room",
				Sources: cli.EnvVars("COLISTEN_NAME"),
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "Spotify Connect device id to play on",
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "Spotify token file written by 'spotify login'",
				Value: defaultTokenFile,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Do not open YouTube videos in the browser",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File that receives logs while the UI is running",
				Value: "./tmp/colisten-listen.log",
			},
		},
		Action: r.Listen,
	}
}

// normalizeCommand prints the canonical identifier for a link.
func normalizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Print the canonical identifier for a YouTube or Spotify link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "input"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Room mode (youtube or spotify)",
				Value: string(models.ModeYouTube),
			},
		},
		Action: r.Normalize,
	}
}

// metadataCommand fetches display metadata, going through the track cache.
func metadataCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "metadata",
		Aliases: []string{"meta"},
		Usage:   "Look up title and artist for a link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "input"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Room mode (youtube or spotify)",
				Value: string(models.ModeYouTube),
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "Spotify token file written by 'spotify login'",
				Value: defaultTokenFile,
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the local track cache",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Metadata,
	}
}

// spotifyCommand handles Spotify authorization.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and save the token locally",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "token-file",
						Usage: "Where to write the token",
						Value: defaultTokenFile,
					},
					&cli.StringFlag{
						Name:  "callback-addr",
						Usage: "Address for the temporary callback server",
						Value: "127.0.0.1:8888",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: oauthTimeout,
					},
				},
				Action: r.SpotifyLogin,
			},
			{
				Name:   "login-url",
				Usage:  "Print the authorization URL without starting a callback server",
				Action: r.SpotifyLoginURL,
			},
		},
	}
}

// apiCommand makes raw calls against a running server.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the colisten server at base_url",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path and print the response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to a path",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:   "health",
				Usage:  "Check that the server is up",
				Action: r.APIHealth,
			},
		},
	}
}
