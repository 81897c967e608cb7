package book

import (
	"grimoire/common"
)

// Overlay is a decoration placed over chapter text. Concrete types are
// StickyNote, Photo and CornerNote, each carrying only its own attributes.
type Overlay interface {
	Kind() common.OverlayKind
	ItemID() ID
	Reference() Link
}

// Placement is position in percents of page size plus rotation in degrees.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

type StickyNote struct {
	ID    ID
	Text  string
	Color string
	Placement
	Link Link
}

func (n *StickyNote) Kind() common.OverlayKind { return common.OverlayKindStickyNote }
func (n *StickyNote) ItemID() ID               { return n.ID }
func (n *StickyNote) Reference() Link          { return n.Link }

// Photo is a polaroid with caption. Href is an external web link, unrelated
// to the chapter cross-reference in Link.
type Photo struct {
	ID      ID
	Caption string
	URL     string
	Href    string
	Placement
	Link Link
}

func (p *Photo) Kind() common.OverlayKind { return common.OverlayKindPhoto }
func (p *Photo) ItemID() ID               { return p.ID }
func (p *Photo) Reference() Link          { return p.Link }

type CornerNote struct {
	ID       ID
	Text     string
	Position common.CornerPosition
	Rotation float64
	Link     Link
}

func (c *CornerNote) Kind() common.OverlayKind { return common.OverlayKindCornerNote }
func (c *CornerNote) ItemID() ID               { return c.ID }
func (c *CornerNote) Reference() Link          { return c.Link }

// Default rotations used when record does not specify one.
const (
	defaultStickyRotation = -2.5
	defaultPhotoRotation  = 3.5
	defaultCornerRotation = -5
)
