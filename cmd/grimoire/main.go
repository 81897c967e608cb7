package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"grimoire/admin"
	"grimoire/common"
	"grimoire/config"
	"grimoire/misc"
	"grimoire/state"
	"grimoire/viewer"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// we do not want any of your secrets!
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}

	if cmd.Args().First() == "read" {
		// terminal belongs to the viewer
		env.Log, err = env.Cfg.Logging.Prepare(env.Rpt, config.WithoutConsole())
	} else {
		env.Log, err = env.Cfg.Logging.Prepare(env.Rpt)
	}
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if er := env.Close(); er != nil {
		err = multierr.Append(err, er)
	}

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling, subcommands return regular
// errors.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// allow graceful shutdown on interrupt, viewer and remote calls follow
	// context
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "reader and administration tool for the grimoire",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "read",
				Usage:        "Opens the book in terminal viewer",
				OnUsageError: usageErrorHandler,
				Action:       viewer.Run,
				CustomHelpTemplate: fmt.Sprintf(`%s
Book opens on the cover, or on the page it was left open when viewer.reopen_last_page
is set. Press ? inside the viewer for keys. Logs go to the log file only while
viewer is running.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "chapters",
				Usage:        "Lists, shows and edits chapters",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "list",
						Usage:        "Lists chapters of the book",
						OnUsageError: usageErrorHandler,
						Action:       admin.ListChapters,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "sort", Value: common.ChapterOrderPosition.String(),
								Usage: "chapter `ORDER` (supported: " + strings.Join(common.ChapterOrderNames(), ", ") + ")"},
						},
					},
					{
						Name:         "show",
						Usage:        "Prints chapter with its notes and photos",
						OnUsageError: usageErrorHandler,
						Action:       admin.ShowChapter,
						ArgsUsage:    "ID",
					},
					{
						Name:         "save",
						Usage:        "Creates or updates chapter from YAML file",
						OnUsageError: usageErrorHandler,
						Before:       admin.Authorize,
						Action:       admin.SaveChapter,
						Flags:        admin.CredentialFlags(),
						ArgsUsage:    "FILE",
						CustomHelpTemplate: fmt.Sprintf(`%s
FILE:
    YAML document using the same field names as the web editor, for example

        id: 1700000000000          # omit to create new chapter
        title: Chapter II
        content: |
            Chapter text.
        songUrl: https://example.com/song.mp3
        songStartTime: 12
        postIts:
          - {text: Back to preface, x: 10, y: 20, color: "#f7e27a", linkToChapterId: 1}
        photos:
          - {caption: Unknown woman, url: https://example.com/a.jpg, x: 60, y: 40}
        cornerNotes:
          - {text: Do not forget, position: bottom-right}
`, cli.CommandHelpTemplate),
					},
					{
						Name:         "delete",
						Usage:        "Deletes chapter",
						OnUsageError: usageErrorHandler,
						Before:       admin.Authorize,
						Action:       admin.DeleteChapter,
						Flags:        admin.CredentialFlags(),
						ArgsUsage:    "ID",
					},
				},
			},
			{
				Name:         "mural",
				Usage:        "Shows and edits final mural",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "show",
						Usage:        "Prints remembered women",
						OnUsageError: usageErrorHandler,
						Action:       admin.ShowMural,
					},
					{
						Name:         "save",
						Usage:        "Replaces remembered women with list from YAML file",
						OnUsageError: usageErrorHandler,
						Before:       admin.Authorize,
						Action:       admin.SaveMural,
						Flags:        admin.CredentialFlags(),
						ArgsUsage:    "FILE",
						CustomHelpTemplate: fmt.Sprintf(`%s
FILE:
    YAML list, every entry needs name, date and memory

        - {name: María, date: 1890-1960, memory: Fought for women workers}
        - {id: 2, name: Carmen, date: "1901", memory: Schoolmistress}

Book title and author are not changed.
`, cli.CommandHelpTemplate),
					},
				},
			},
			{
				Name:         "book",
				Usage:        "Edits book information",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "set-info",
						Usage:        "Changes book title and/or author, mural is not changed",
						OnUsageError: usageErrorHandler,
						Before:       admin.Authorize,
						Action:       admin.SetBookInfo,
						Flags: append(admin.CredentialFlags(),
							&cli.StringFlag{Name: "title", Usage: "new book `TITLE`"},
							&cli.StringFlag{Name: "author", Usage: "new `AUTHOR`, revealed on the mural"},
						),
					},
				},
			},
			{
				Name:         "links",
				Usage:        "Checks cross-references",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "check",
						Usage:        "Reports notes and photos linking to missing chapters or to themselves",
						OnUsageError: usageErrorHandler,
						Action:       admin.CheckLinks,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "strict", Usage: "fail when broken references are found"},
						},
					},
				},
			},
			{
				Name:         "export",
				Usage:        "Writes the book as FB2 document",
				OnUsageError: usageErrorHandler,
				Action:       admin.Export,
				ArgsUsage:    "[DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    directory or file name ending with .fb2, if absent - current working directory
    file name in directory is built from export.output_name_template
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
