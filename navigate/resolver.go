package navigate

import (
	"fmt"

	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/notice"
)

// Resolution is the outcome of following a cross-reference.
type Resolution int

const (
	// Unlinked means overlay carries no link.
	Unlinked Resolution = iota
	// Broken means target chapter is not in the current snapshot.
	Broken
	// Jumped means jump to target page was requested and accepted.
	Jumped
	// Dropped means target was found but navigation was not accepted, for
	// example because another transition is in progress.
	Dropped
)

func (r Resolution) String() string {
	switch r {
	case Unlinked:
		return "unlinked"
	case Broken:
		return "broken"
	case Jumped:
		return "jumped"
	case Dropped:
		return "dropped"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// SnapshotSource supplies currently loaded book.
type SnapshotSource interface {
	Snapshot() *book.Snapshot
}

// SnapshotFunc adapts ordinary function to SnapshotSource.
type SnapshotFunc func() *book.Snapshot

func (f SnapshotFunc) Snapshot() *book.Snapshot { return f() }

// Jumper is the part of Engine resolver drives.
type Jumper interface {
	JumpViaReference(target int) bool
}

// Resolver turns overlay links into navigation. It works synchronously
// against whatever snapshot is loaded and never fetches anything.
type Resolver struct {
	src  SnapshotSource
	nav  Jumper
	sink notice.Sink
	log  *zap.Logger
}

func NewResolver(src SnapshotSource, nav Jumper, sink notice.Sink, log *zap.Logger) *Resolver {
	if sink == nil {
		sink = notice.Discard
	}
	return &Resolver{src: src, nav: nav, sink: sink, log: log.Named("resolve")}
}

// Resolve follows link. Absent or broken link results in exactly one notice
// and no navigation.
func (r *Resolver) Resolve(link book.Link) Resolution {
	if !link.Present() {
		r.sink.Notify(notice.New(notice.NoLink, "No link", "this item does not lead anywhere"))
		return Unlinked
	}
	index, ok := r.src.Snapshot().IndexOf(link.Target)
	if !ok {
		r.log.Warn("Broken cross-reference", zap.Stringer("target", link.Target))
		r.sink.Notify(notice.New(notice.BrokenLink, "Broken link",
			fmt.Sprintf("chapter %s is not in the book anymore", link.Target)))
		return Broken
	}
	if !r.nav.JumpViaReference(index) {
		return Dropped
	}
	return Jumped
}

// BrokenRef describes overlay whose cross-reference cannot be followed.
type BrokenRef struct {
	Chapter book.ID
	Title   string
	Page    int
	Item    book.Overlay
	// Self is set when item links to the chapter it belongs to.
	Self bool
}

func (b BrokenRef) String() string {
	reason := "missing chapter " + b.Item.Reference().Target.String()
	if b.Self {
		reason = "links to itself"
	}
	return fmt.Sprintf("page %d %q: %s %s %s", b.Page+1, b.Title, b.Item.Kind(), b.Item.ItemID(), reason)
}

// BrokenRefs lists every overlay of snapshot with a link that leads nowhere or
// back to its own chapter.
func BrokenRefs(s *book.Snapshot) []BrokenRef {
	if s == nil {
		return nil
	}
	var res []BrokenRef
	for page := range s.Chapters {
		ch := &s.Chapters[page]
		for _, o := range ch.Overlays {
			ref := o.Reference()
			if !ref.Present() {
				continue
			}
			if ref.Target == ch.ID {
				res = append(res, BrokenRef{Chapter: ch.ID, Title: ch.Title, Page: page, Item: o, Self: true})
				continue
			}
			if _, ok := s.IndexOf(ref.Target); !ok {
				res = append(res, BrokenRef{Chapter: ch.ID, Title: ch.Title, Page: page, Item: o})
			}
		}
	}
	return res
}
