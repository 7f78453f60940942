// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with the default settings",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the JSON API the TUI and CLI talk to.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist sharing API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.DurationFlag{
				Name:  "purge-interval",
				Usage: "How often expired sessions are deleted",
				Value: time.Hour,
			},
		},
		Action: r.Serve,
	}
}

func signInCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "signin",
		Aliases:   []string{"login"},
		Usage:     "Sign in and save the session token",
		Arguments: []cli.Argument{&cli.StringArg{Name: "user"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				Sources:  cli.EnvVars("PLAYSHARE_PASSWORD"),
				Required: true,
			},
		},
		Action: r.SignIn,
	}
}

func signUpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "signup",
		Usage:     "Create an account and sign in",
		Arguments: []cli.Argument{&cli.StringArg{Name: "user"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				Sources:  cli.EnvVars("PLAYSHARE_PASSWORD"),
				Required: true,
			},
			&cli.StringFlag{
				Name:  "nickname",
				Usage: "Display name (default: the user id)",
			},
		},
		Action: r.SignUp,
	}
}

func signOutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "signout",
		Aliases: []string{"logout"},
		Usage:   "Forget the saved session",
		Action:  r.SignOut,
	}
}

func whoAmICommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user's profile",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.WhoAmI,
	}
}

// collectionFlags are shared by the commands that print a whole collection.
func collectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (txt, csv, markdown)",
			Value:   "txt",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// playlistsCommand handles playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print every playlist a user shares",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "User id (default: signed-in user)"},
				}, collectionFlags()...),
				Action: r.PlaylistsList,
			},
			{
				Name:  "export",
				Usage: "Export playlists of one or more users to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User id to export (repeatable)",
						Required: true,
					},
					&cli.BoolFlag{Name: "liked", Usage: "Also export each user's liked playlists"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format (txt, csv, markdown)", Value: "csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default: playshare_export_{epoch})"},
					&cli.BoolFlag{Name: "covers", Usage: "Download cover images (markdown only)"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent exports", Value: 4},
					&cli.Float64Flag{Name: "rate", Usage: "Collections started per second", Value: 5},
				},
				Action: r.PlaylistsExport,
			},
			{
				Name:      "create",
				Usage:     "Share a new playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag (repeatable)"},
					&cli.StringSliceFlag{Name: "image", Aliases: []string{"i"}, Usage: "Cover image URL (repeatable)"},
					&cli.BoolFlag{Name: "private", Usage: "Only visible to you"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "like",
				Usage:     "Like a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "undo", Usage: "Remove the like instead"},
				},
				Action: r.PlaylistsLike,
			},
		},
	}
}

func likedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "liked",
		Usage: "Print the playlists a user liked",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "User id (default: signed-in user)"},
		}, collectionFlags()...),
		Action: r.Liked,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search playlists by title or tag",
		Arguments: []cli.Argument{&cli.StringArg{Name: "term"}},
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "filter", Usage: "Order results by recent or popular (default: relevance)"},
		}, collectionFlags()...),
		Action: r.Search,
	}
}

func followingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "following",
		Usage: "Print the users a user follows",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "User id (default: signed-in user)"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Following,
	}
}

func followCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "follow",
		Usage:     "Follow a user",
		Arguments: []cli.Argument{&cli.StringArg{Name: "user"}},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "undo", Usage: "Unfollow instead"},
		},
		Action: r.Follow,
	}
}

// tuiCommand returns the top-level TUI command for browsing playlists interactively.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive playlist browser",
		Action:  r.TUI,
	}
}
