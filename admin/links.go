package admin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"grimoire/export"
	"grimoire/navigate"
	"grimoire/state"
)

var ErrBrokenLinks = errors.New("book has broken cross-references")

// CheckLinks reports overlays leading nowhere. With --strict broken links
// make command fail.
func CheckLinks(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	_, s, err := load(ctx)
	if err != nil {
		return err
	}
	broken := navigate.BrokenRefs(s)

	out := output(cmd)
	for _, b := range broken {
		fmt.Fprintln(out, b.String())
	}
	env.Log.Info("Cross-references checked", zap.Int("chapters", len(s.Chapters)), zap.Int("broken", len(broken)))
	if len(broken) > 0 && cmd.Bool("strict") {
		return fmt.Errorf("%w: %d", ErrBrokenLinks, len(broken))
	}
	return nil
}

// Export writes the book as FB2 into DESTINATION (directory or .fb2 file,
// current directory when absent).
func Export(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	dst := cmd.Args().First()
	if len(dst) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
		dst = wd
	}
	dst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("unable to resolve destination: %w", err)
	}

	exp, err := export.New(&env.Cfg.Export, env.Log)
	if err != nil {
		return err
	}
	_, s, err := load(ctx)
	if err != nil {
		return err
	}
	out, err := exp.Export(ctx, s, dst)
	if err != nil {
		return fmt.Errorf("unable to export book: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("export/"+filepath.Base(out), out)
	}
	env.Log.Info("Book exported", zap.String("file", out))
	return nil
}
