package book

import (
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// DecodeChapterYAML reads chapter written by hand in YAML using the same
// field names as remote JSON (postIts, photos, cornerNotes, songUrl...).
// Missing identifier is replaced with temporary one.
func DecodeChapterYAML(data []byte) (*Chapter, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse chapter: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to convert chapter: %w", err)
	}
	var c Chapter
	if err := json.Unmarshal(js, &c); err != nil {
		return nil, fmt.Errorf("unable to decode chapter: %w", err)
	}
	if c.ID.IsZero() {
		c.ID = NewTempID()
	}
	return &c, nil
}

// DecodeWomenYAML reads list of mural entries.
func DecodeWomenYAML(data []byte) ([]Woman, error) {
	var women []Woman
	if err := yaml.Unmarshal(data, &women); err != nil {
		return nil, fmt.Errorf("unable to parse mural entries: %w", err)
	}
	return women, nil
}
