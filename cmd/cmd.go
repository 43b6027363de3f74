// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/urfave/cli/v3"
)

// outputFlags are shared by every command that renders records.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown, csv or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to a file instead of stdout",
		},
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}
}

// setupCommand handles setup operations for configuration, database and credentials.
func setupCommand(r *Runner) *cli.Command {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   configPath,
		}
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the upload journal and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "token",
				Usage: "Store an admin bearer token taken from a browser request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "env-file",
						Usage: "Env file to write MEDIADESK_TOKEN and MEDIADESK_API_URL to",
						Value: ".env",
					},
				},
				Action: r.SetupToken,
			},
		},
	}
}

// uploadCommand handles bulk uploads and the upload journal.
func uploadCommand(r *Runner) *cli.Command {
	uploadFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"j"},
				Usage:   "Concurrent uploads (1-8, default from config)",
			},
			&cli.BoolFlag{
				Name:  "storage",
				Usage: "Upload to object storage instead of the admin API",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Maximum item starts per second (0 disables pacing)",
			},
		}
	}

	return &cli.Command{
		Name:  "upload",
		Usage: "Bulk media uploads",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Upload files and directories as one batch",
				ArgsUsage: "<path> [path...]",
				Flags: append(append([]cli.Flag{
					&cli.BoolFlag{
						Name:    "tui",
						Aliases: []string{"i"},
						Usage:   "Confirm and follow the batch in the interactive view",
					},
				}, uploadFlags()...), outputFlags()...),
				Action: r.UploadRun,
			},
			{
				Name:  "watch",
				Usage: "Upload files dropped into a directory",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "dir"},
				},
				Flags: append([]cli.Flag{
					&cli.DurationFlag{
						Name:  "quiet",
						Usage: "Wait this long after the last change before uploading",
						Value: 2 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "existing",
						Usage: "Upload files already in the directory on start",
					},
				}, uploadFlags()...),
				Action: r.UploadWatch,
			},
			{
				Name:  "history",
				Usage: "List recorded upload batches",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of batches to list",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "transport",
						Usage: "Only list batches sent through this transport (api or storage)",
					},
				}, outputFlags()...),
				Action: r.UploadHistory,
			},
			{
				Name:  "show",
				Usage: "Show one recorded batch with its items",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.UploadShow,
			},
		},
	}
}

// musicCommand handles single-track creation and the category catalog.
func musicCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "music",
		Usage: "Add single tracks with metadata",
		Commands: []*cli.Command{
			{
				Name:   "categories",
				Usage:  "List categories and their types",
				Flags:  outputFlags(),
				Action: r.MusicCategories,
			},
			{
				Name:  "create",
				Usage: "Upload one MP3 or WAV track with its thumbnail and metadata",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Track title"},
					&cli.StringFlag{Name: "artist", Usage: "Artist name"},
					&cli.StringFlag{Name: "category", Usage: "Category ID or name (default: first listed)"},
					&cli.StringFlag{Name: "type", Usage: "Category type ID or name (default: first of the category)"},
					&cli.StringFlag{Name: "thumbnail", Usage: "Thumbnail image file"},
					&cli.StringFlag{Name: "release-date", Usage: "Release date, YYYY-MM-DD (default: today)"},
					&cli.IntFlag{Name: "duration", Usage: "Track length in seconds"},
				},
				Action: r.MusicCreate,
			},
		},
	}
}

func termsCommand(r *Runner) *cli.Command {
	return documentCommand(r, models.DocumentTerms, "terms", "Terms and conditions")
}

func disclaimerCommand(r *Runner) *cli.Command {
	return documentCommand(r, models.DocumentDisclaimer, "disclaimer", "Disclaimers")
}

// documentCommand builds the command tree for one kind of legal document.
func documentCommand(r *Runner, kind models.DocumentType, name, usage string) *cli.Command {
	contentFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Document title"},
			&cli.StringFlag{Name: "content", Usage: "Document body (HTML)"},
			&cli.StringFlag{Name: "content-file", Usage: "Read the document body from a file"},
			&cli.StringFlag{Name: "version", Usage: "Version number (default: next suggested version)"},
			&cli.StringFlag{Name: "effective", Usage: "Effective date, YYYY-MM-DD (default: today)"},
		}
	}

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every version",
				Flags:  outputFlags(),
				Action: r.DocumentsList(kind),
			},
			{
				Name:      "show",
				Usage:     "Show one version, or the active one when no ID is given",
				Arguments: idArg(),
				Flags:     outputFlags(),
				Action:    r.DocumentShow(kind),
			},
			{
				Name:   "create",
				Usage:  "Create a new inactive version",
				Flags:  contentFlags(),
				Action: r.DocumentCreate(kind),
			},
			{
				Name:      "update",
				Usage:     "Edit an inactive version",
				Arguments: idArg(),
				Flags:     contentFlags(),
				Action:    r.DocumentUpdate(kind),
			},
			{
				Name:      "publish",
				Usage:     "Make a version the active one",
				Arguments: idArg(),
				Action:    r.DocumentPublish(kind),
			},
			{
				Name:      "unpublish",
				Usage:     "Deactivate a version",
				Arguments: idArg(),
				Action:    r.DocumentUnpublish(kind),
			},
			{
				Name:      "delete",
				Usage:     "Delete a version permanently",
				Arguments: idArg(),
				Flags:     []cli.Flag{yesFlag()},
				Action:    r.DocumentDelete(kind),
			},
		},
	}
}

// plansCommand handles subscription plan operations.
func plansCommand(r *Runner) *cli.Command {
	planFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Plan title"},
			&cli.FloatFlag{Name: "monthly", Usage: "Monthly cost"},
			&cli.FloatFlag{Name: "annual", Usage: "Annual cost"},
			&cli.StringFlag{Name: "description", Usage: "Plan description (HTML)"},
			&cli.StringFlag{Name: "features", Usage: "Features, one per line"},
			&cli.StringFlag{Name: "ad-supported", Usage: "Ad supported (Yes/No)"},
			&cli.StringFlag{Name: "audio-file-type", Usage: "Audio file type offered"},
			&cli.StringFlag{Name: "offline-downloads", Usage: "Offline downloads allowance"},
			&cli.StringFlag{Name: "binaural-tracks", Usage: "Binaural tracks allowance"},
			&cli.StringFlag{Name: "soundscape-tracks", Usage: "Soundscape tracks allowance"},
			&cli.StringFlag{Name: "dynamic-audio", Usage: "Dynamic audio features (Yes/No)"},
			&cli.StringFlag{Name: "custom-requests", Usage: "Custom track requests (Yes/No)"},
			&cli.StringFlag{Name: "stripe-monthly", Usage: "Stripe monthly price ID"},
			&cli.StringFlag{Name: "stripe-yearly", Usage: "Stripe yearly price ID"},
		}
	}

	return &cli.Command{
		Name:    "plans",
		Aliases: []string{"plan"},
		Usage:   "Subscription plan operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all plans",
				Flags:  outputFlags(),
				Action: r.PlansList,
			},
			{
				Name:      "show",
				Usage:     "Show one plan",
				Arguments: idArg(),
				Flags:     outputFlags(),
				Action:    r.PlanShow,
			},
			{
				Name:   "create",
				Usage:  "Create a plan",
				Flags:  planFlags(),
				Action: r.PlanCreate,
			},
			{
				Name:      "update",
				Usage:     "Update a plan; only the given fields change",
				Arguments: idArg(),
				Flags:     planFlags(),
				Action:    r.PlanUpdate,
			},
			{
				Name:      "activate",
				Usage:     "Make a deactivated plan available again",
				Arguments: idArg(),
				Action:    r.PlanActivate,
			},
			{
				Name:      "deactivate",
				Usage:     "Hide a plan from subscribers",
				Arguments: idArg(),
				Flags:     []cli.Flag{yesFlag()},
				Action:    r.PlanDeactivate,
			},
			{
				Name:      "default",
				Usage:     "Mark a plan as the default offer",
				Arguments: idArg(),
				Action:    r.PlanSetDefault,
			},
		},
	}
}

// usersCommand handles user account operations.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"user"},
		Usage:   "User account operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users with subscription status",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"q"},
						Usage:   "Match email, role or name",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "all, active, expired, inactive, expiring or canceled",
						Value: models.FilterAll,
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "email-asc, email-desc, newest or oldest",
						Value: models.SortNewest,
					},
				}, outputFlags()...),
				Action: r.UsersList,
			},
			{
				Name:  "delete",
				Usage: "Delete a user account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{yesFlag()},
				Action: r.UserDelete,
			},
		},
	}
}

// sanitizeCommand exposes the sanitization gate for checking content by hand.
func sanitizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sanitize",
		Usage: "Preview how content passes the sanitization gate",
		Commands: []*cli.Command{
			{
				Name:      "html",
				Usage:     "Print the sanitized form of HTML (argument, --file or stdin)",
				ArgsUsage: "[html]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read HTML from a file",
					},
					&cli.BoolFlag{
						Name:  "text",
						Usage: "Strip all markup and print plain text",
					},
				},
				Action: r.SanitizeHTML,
			},
			{
				Name:  "url",
				Usage: "Check a link target; rejected URLs exit with an error",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "base",
						Usage: "Resolve relative URLs against this base",
					},
				},
				Action: r.SanitizeURL,
			},
		},
	}
}

// serveCommand starts the preview server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve sanitized previews of documents, plans and upload history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the preview in a browser",
			},
		},
		Action: r.Serve,
	}
}

// apiCommand handles direct admin API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the admin API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
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
		},
	}
}
