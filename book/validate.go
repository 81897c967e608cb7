package book

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/multierr"
)

var ErrInvalid = errors.New("invalid record")

// DefaultAudioFormats are extensions accepted for chapter songs when caller
// does not restrict them.
var DefaultAudioFormats = []string{"mp3", "ogg", "wav", "flac", "m4a"}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && len(u.Host) > 0
}

// AudioExt returns lower case extension of the audio resource path, query
// and fragment are ignored.
func AudioExt(resource string) string {
	p := resource
	if u, err := url.Parse(resource); err == nil {
		p = u.Path
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
}

// IsAudioExt checks that extension is known audio type and one of allowed
// formats.
func IsAudioExt(ext string, formats []string) bool {
	if len(formats) == 0 {
		formats = DefaultAudioFormats
	}
	if !slices.Contains(formats, ext) {
		return false
	}
	return filetype.GetType(ext).MIME.Type == "audio"
}

// ValidateChapter applies editor rules: title and content are required, song
// must be a web link to audio file with non negative start offset, images
// must be web links. All problems are reported at once.
func ValidateChapter(c *Chapter, audioFormats []string) error {
	var err error
	if len(strings.TrimSpace(c.Title)) == 0 {
		err = multierr.Append(err, invalid("chapter title is required"))
	}
	if len(strings.TrimSpace(c.Content)) == 0 {
		err = multierr.Append(err, invalid("chapter content is required"))
	}
	if c.Audio != nil {
		switch {
		case len(c.Audio.URL) == 0:
		case !isWebURL(c.Audio.URL):
			err = multierr.Append(err, invalid("song %q is not a web link", c.Audio.URL))
		case !IsAudioExt(AudioExt(c.Audio.URL), audioFormats):
			err = multierr.Append(err, invalid("song %q is not a supported audio file", c.Audio.URL))
		}
		if c.Audio.Start < 0 {
			err = multierr.Append(err, invalid("song start time %v must not be negative", c.Audio.Start))
		}
	}
	if len(c.ImageURL) > 0 && !isWebURL(c.ImageURL) {
		err = multierr.Append(err, invalid("image %q is not a web link", c.ImageURL))
	}
	for _, o := range c.Overlays {
		if p, ok := o.(*Photo); ok && len(p.URL) > 0 && !isWebURL(p.URL) {
			err = multierr.Append(err, invalid("photo %s url %q is not a web link", p.ID, p.URL))
		}
		if ref := o.Reference(); ref.Present() && ref.Target == c.ID {
			err = multierr.Append(err, invalid("%s %s links to its own chapter", o.Kind(), o.ItemID()))
		}
	}
	return err
}

// ValidateWomen requires every mural entry to have name, date and memory.
func ValidateWomen(women []Woman) error {
	var err error
	for i, w := range women {
		if len(strings.TrimSpace(w.Name)) == 0 || len(strings.TrimSpace(w.Date)) == 0 || len(strings.TrimSpace(w.Memory)) == 0 {
			err = multierr.Append(err, invalid("mural entry %d (%s) must have name, date and memory", i+1, w.ID))
		}
	}
	return err
}
