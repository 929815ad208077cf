// Package overlay lays out rating badges into a band that is later burned
// onto the bottom of a poster.
//
// The layout is a fixed grid derived only from the poster size: items are a
// quarter of the width wide and a third of that tall, and the cursor wraps
// to the next row as soon as another item would cross the right edge.
package overlay

import (
	"errors"

	"ratingposter/internal/ratings"
)

var (
	// ErrEmptyOverlay means no rating had a badge; the poster must be left alone.
	ErrEmptyOverlay = errors.New("overlay: no recognized rating badges")
	// ErrInvalidCanvas means the poster dimensions are unusable.
	ErrInvalidCanvas = errors.New("overlay: canvas must have positive width and height")
)

// Badge is a badge placed inside the band. X and Y are relative to the
// band's top-left corner.
type Badge struct {
	Asset Asset
	X     int
	Y     int
	Score string
}

// Spec is everything the compositor needs to draw the band.
type Spec struct {
	Width      int // canvas (poster) width; the band spans all of it
	Height     int // canvas (poster) height
	ItemWidth  int
	ItemHeight int
	BandHeight int
	Badges     []Badge
}

// Empty reports whether there is nothing to draw.
func (s Spec) Empty() bool { return len(s.Badges) == 0 }

// BandTop is the canvas row where the bottom-anchored band starts.
func (s Spec) BandTop() int { return s.Height - s.BandHeight }

// Grid holds the size-derived layout constants.
type Grid struct {
	ItemWidth  int
	ItemHeight int
	PaddingX   int
	PaddingY   int
}

// GridFor derives the layout constants for a width x height canvas.
func GridFor(width, height int) Grid {
	itemWidth := width / 4
	return Grid{
		ItemWidth:  itemWidth,
		ItemHeight: itemWidth / 3,
		PaddingX:   width / 15,
		PaddingY:   height / 25,
	}
}

// Compose places one badge per recognized rating, in ratings order. A nil
// resolver means DefaultResolver. It returns ErrEmptyOverlay when no rating
// resolves to a badge.
func Compose(width, height int, r ratings.Ratings, resolver Resolver) (Spec, error) {
	if width <= 0 || height <= 0 {
		return Spec{}, ErrInvalidCanvas
	}
	if resolver == nil {
		resolver = DefaultResolver
	}

	g := GridFor(width, height)
	x, y := g.PaddingX, g.PaddingY
	var badges []Badge
	for _, t := range r {
		asset, ok := resolver.Resolve(t)
		if !ok {
			continue
		}
		badges = append(badges, Badge{Asset: asset, X: x, Y: y, Score: t.Score})

		x += g.ItemWidth + g.PaddingX
		if x+g.ItemWidth > width {
			x = g.PaddingX
			y += g.ItemHeight + g.PaddingY
		}
	}
	if len(badges) == 0 {
		return Spec{}, ErrEmptyOverlay
	}

	return Spec{
		Width:      width,
		Height:     height,
		ItemWidth:  g.ItemWidth,
		ItemHeight: g.ItemHeight,
		BandHeight: y + g.ItemHeight + g.PaddingY,
		Badges:     badges,
	}, nil
}
