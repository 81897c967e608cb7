// Package book defines grimoire content: chapters with their overlays, the
// final mural and the snapshot tying them together, plus the JSON form used
// by the remote API.
package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const tempPrefix = "tmp-"

// ID identifies chapters, overlay items and mural entries. Remote side uses
// numbers (creation timestamps), so ID accepts both JSON numbers and strings
// and writes numeric values back as numbers.
type ID string

// NewTempID returns client side identifier for records not yet saved.
func NewTempID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return ID(tempPrefix + u.String())
}

func (id ID) IsZero() bool {
	return len(id) == 0
}

// Temporary reports whether id was made by NewTempID and is still waiting for
// the server to assign a durable one.
func (id ID) Temporary() bool {
	return strings.HasPrefix(string(id), tempPrefix)
}

func (id ID) String() string {
	return string(id)
}

func (id ID) numeric() bool {
	if len(id) == 0 || len(id) > 18 {
		return false
	}
	i, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(i, 10) == string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id.IsZero():
		return []byte("null"), nil
	case id.numeric():
		return []byte(id), nil
	default:
		return json.Marshal(string(id))
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("identifier must be number or string: %w", err)
		}
		// float ids (Date.now() + Math.random() leftovers) are truncated
		if i, err := n.Int64(); err == nil {
			*id = ID(strconv.FormatInt(i, 10))
		} else if f, err := n.Float64(); err == nil {
			*id = ID(strconv.FormatInt(int64(f), 10))
		} else {
			return fmt.Errorf("bad identifier %s: %w", data, err)
		}
		return nil
	}
}

// Link is optional cross-reference from overlay item to a chapter. Zero
// value means "no link configured".
type Link struct {
	Target ID
}

// LinkTo is a shorthand for building links in code.
func LinkTo(id ID) Link {
	return Link{Target: id}
}

func (l Link) Present() bool {
	return !l.Target.IsZero()
}

func (l Link) MarshalJSON() ([]byte, error) {
	return l.Target.MarshalJSON()
}

func (l *Link) UnmarshalJSON(data []byte) error {
	if err := l.Target.UnmarshalJSON(data); err != nil {
		return err
	}
	// editor stores "no link" as empty option value or 0 in some records
	if l.Target == "0" {
		l.Target = ""
	}
	return nil
}
