// Package admin implements book administration subcommands: everything the
// web editor does (chapters, mural, book information) plus link checking
// and export.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/library"
	"grimoire/state"
)

var ErrNotAuthorized = errors.New("administrator credentials do not match")

// Authorize is Before hook of every command changing the book. Credentials
// come from --user and --password flags or GRIMOIRE_USER and
// GRIMOIRE_PASSWORD environment.
func Authorize(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := state.EnvFromContext(ctx)

	user, password := cmd.String("user"), cmd.String("password")
	env.User, env.Password = user, password

	if user != env.Cfg.Admin.User || !env.Cfg.Admin.Password.Matches(password) {
		env.Log.Warn("Refusing administrative command", zap.String("command", cmd.Name), zap.String("user", user))
		return ctx, ErrNotAuthorized
	}
	env.Log.Debug("Administrator authorized", zap.String("user", user))
	return ctx, nil
}

// CredentialFlags are added to commands protected by Authorize.
func CredentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "administrator `NAME`", Sources: cli.EnvVars("GRIMOIRE_USER")},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "administrator `PASSWORD`", Sources: cli.EnvVars("GRIMOIRE_PASSWORD")},
	}
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// load returns library with fresh snapshot. Remote failure is not fatal when
// local cache had the book.
func load(ctx context.Context) (*library.Library, *book.Snapshot, error) {
	env := state.EnvFromContext(ctx)
	lib, err := env.Library()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to prepare library: %w", err)
	}
	s, err := lib.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read book: %w", err)
	}
	if s.Cached {
		env.Log.Warn("Remote is not reachable, using cached book", zap.Time("fetched", s.FetchedAt))
	}
	return lib, s, nil
}

func readFile(cmd *cli.Command) ([]byte, string, error) {
	if cmd.Args().Len() != 1 {
		return nil, "", fmt.Errorf("expecting exactly one FILE argument")
	}
	fname := cmd.Args().First()
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fname, fmt.Errorf("unable to read '%s': %w", fname, err)
	}
	return data, fname, nil
}
