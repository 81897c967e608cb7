package admin

import (
	"context"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/state"
)

// ShowMural prints book information and remembered women.
func ShowMural(ctx context.Context, cmd *cli.Command) error {
	_, s, err := load(ctx)
	if err != nil {
		return err
	}
	out := output(cmd)
	fmt.Fprintf(out, "Title:  %s\nAuthor: %s\n\n", s.Mural.Title, s.Mural.Author)
	for i, w := range s.Mural.Women {
		fmt.Fprintf(out, "%d. %s (%s) [%s]\n   %s\n", i+1, w.Name, w.Date, w.ID, strings.TrimSpace(w.Memory))
	}
	if len(s.Mural.Women) == 0 {
		fmt.Fprintln(out, "Mural is empty")
	}
	return nil
}

// SaveMural replaces list of women with the one from YAML file, book title
// and author stay as they are.
func SaveMural(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	data, fname, err := readFile(cmd)
	if err != nil {
		return err
	}
	women, err := book.DecodeWomenYAML(data)
	if err != nil {
		return fmt.Errorf("'%s': %w", fname, err)
	}
	lib, _, err := load(ctx)
	if err != nil {
		return err
	}
	after, err := lib.SaveWomen(ctx, women)
	if err != nil {
		return err
	}
	env.Log.Info("Mural saved", zap.Int("names", len(after.Mural.Women)))
	return nil
}

// SetBookInfo changes title and/or author, mural entries stay as they are.
func SetBookInfo(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	lib, s, err := load(ctx)
	if err != nil {
		return err
	}
	title, author := s.Mural.Title, s.Mural.Author
	if cmd.IsSet("title") {
		title = cmd.String("title")
	}
	if cmd.IsSet("author") {
		author = cmd.String("author")
	}
	if title == s.Mural.Title && author == s.Mural.Author {
		env.Log.Info("Book information is unchanged, nothing to do")
		return nil
	}
	after, err := lib.SaveBookInfo(ctx, title, author)
	if err != nil {
		return err
	}
	env.Log.Info("Book information saved", zap.String("title", after.Mural.Title), zap.String("author", after.Mural.Author))
	return nil
}
