// Package geometry computes how a section is cropped across the physical
// displays of a space.
//
// Everything here is pure: no state, no I/O. Given a space's client
// regions and a section rectangle, Layout returns one entry per client,
// in client-id order, describing the slice of the section that client
// renders.
package geometry

import (
	"math"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// Layout crops rect against every client region of space.
//
// A client the section does not overlap yields an empty layout at its
// index. An overlapping client yields its region translated into the
// section's coordinates; content that starts before the client's visible
// origin is cropped from the leading edge and reported as an offset.
func Layout(space *domain.Space, rect domain.Rect) []domain.ClientLayout {
	out := make([]domain.ClientLayout, len(space.Clients))
	for i, c := range space.Clients {
		if c.IsDegenerate() || !Overlaps(c, rect) {
			out[i] = domain.ClientLayout{Empty: true}
			continue
		}
		out[i] = crop(c, rect)
	}
	return out
}

func crop(c, rect domain.Rect) domain.ClientLayout {
	l := domain.ClientLayout{Rect: c}

	if l.X >= rect.X {
		l.X -= rect.X
	} else {
		shift := rect.X - l.X
		l.Offset.X += shift
		l.W -= shift
		l.X = 0
	}
	if l.X+l.W > rect.W {
		l.W = rect.W - l.X
	}

	if l.Y >= rect.Y {
		l.Y -= rect.Y
	} else {
		shift := rect.Y - l.Y
		l.Offset.Y += shift
		l.H -= shift
		l.Y = 0
	}
	if l.Y+l.H > rect.H {
		l.H = rect.H - l.Y
	}

	return l
}

// Overlaps reports whether two rectangles share a non-empty area.
func Overlaps(c, rect domain.Rect) bool {
	return c.X+c.W > rect.X && rect.X+rect.W > c.X &&
		c.Y+c.H > rect.Y && rect.Y+rect.H > c.Y
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner domain.Rect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.W <= outer.X+outer.W &&
		inner.Y+inner.H <= outer.Y+outer.H
}

// Bounds returns the overall size of a space: the furthest right and
// bottom edges over all of its client regions.
func Bounds(space *domain.Space) domain.Size {
	var size domain.Size
	for _, c := range space.Clients {
		if c.IsDegenerate() {
			continue
		}
		size.W = math.Max(size.W, c.X+c.W)
		size.H = math.Max(size.H, c.Y+c.H)
	}
	return size
}

// Within reports whether rect is a valid placement inside a space of the
// given size.
func Within(rect domain.Rect, size domain.Size) bool {
	return rect.X >= 0 && rect.Y >= 0 && rect.W > 0 && rect.H > 0 &&
		rect.X+rect.W <= size.W && rect.Y+rect.H <= size.H
}

// Rescale maps rect proportionally from a space of size from to a space of
// size to. Degenerate source sizes leave the rectangle unchanged.
func Rescale(rect domain.Rect, from, to domain.Size) domain.Rect {
	if from.W <= 0 || from.H <= 0 {
		return rect
	}
	sx := to.W / from.W
	sy := to.H / from.H
	return domain.Rect{
		X: rect.X * sx,
		Y: rect.Y * sy,
		W: rect.W * sx,
		H: rect.H * sy,
	}
}

// Transform scales a rectangle's size and then translates its position.
// A nil scale or translate leaves that part unchanged.
func Transform(rect domain.Rect, scale, translate *domain.Point) domain.Rect {
	out := rect
	if scale != nil {
		out.W *= scale.X
		out.H *= scale.Y
	}
	if translate != nil {
		out.X += translate.X
		out.Y += translate.Y
	}
	return out
}
