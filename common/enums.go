// Package common holds small enumerations shared by configuration, the book
// model and the viewer, so none of them has to import the others.
package common

import "strings"

//go:generate go tool go-enum --marshal --names --mustparse --nocase

// Kind of decoration placed on top of chapter page.
// ENUM(sticky-note, photo, corner-note)
type OverlayKind int

// Corner of the page corner note is pinned to.
// ENUM(top-left, top-right, bottom-left, bottom-right)
type CornerPosition string

// CornerOf never fails: unknown values fall back to top-left, the way corner
// notes were always rendered.
func CornerOf(s string) CornerPosition {
	p, err := ParseCornerPosition(strings.TrimSpace(s))
	if err != nil {
		return CornerPositionTopLeft
	}
	return p
}

func (p CornerPosition) Top() bool {
	return p == CornerPositionTopLeft || p == CornerPositionTopRight
}

func (p CornerPosition) Left() bool {
	return p == CornerPositionTopLeft || p == CornerPositionBottomLeft
}

// Playback backend used by media session.
// ENUM(clock, none)
type MediaBackend int

// Order of chapters in listings.
// ENUM(position, title)
type ChapterOrder int
