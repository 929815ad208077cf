package overlay

import (
	"embed"
	"fmt"

	"ratingposter/internal/ratings"
)

//go:embed assets/*.svg
var assets embed.FS

// Asset names one of the embedded badge images.
type Asset string

const (
	AssetIMDb       Asset = "imdb"
	AssetMetacritic Asset = "metacritic"
	AssetRTFresh    Asset = "rt_fresh"
	AssetRTRotten   Asset = "rt_rotten"
)

// FreshThreshold is the Rotten Tomatoes score a title must exceed to get the
// fresh badge. A score of exactly 60 is rotten.
const FreshThreshold = 60.0

// SVG returns the asset's SVG source.
func (a Asset) SVG() ([]byte, error) {
	b, err := assets.ReadFile("assets/" + string(a) + ".svg")
	if err != nil {
		return nil, fmt.Errorf("overlay: badge asset %q: %w", a, err)
	}
	return b, nil
}

// Resolver picks the badge for a rating, or reports that the rating has none.
type Resolver interface {
	Resolve(t ratings.Tuple) (Asset, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(t ratings.Tuple) (Asset, bool)

func (f ResolverFunc) Resolve(t ratings.Tuple) (Asset, bool) { return f(t) }

// DefaultResolver renders IMDb, Metacritic and Rotten Tomatoes. Any other
// source stays in the description text only.
var DefaultResolver Resolver = ResolverFunc(resolveDefault)

func resolveDefault(t ratings.Tuple) (Asset, bool) {
	switch t.Source {
	case "imdb":
		return AssetIMDb, true
	case "metacritic":
		return AssetMetacritic, true
	case "rotten_tomatoes":
		if t.Numeric && t.Value > FreshThreshold {
			return AssetRTFresh, true
		}
		return AssetRTRotten, true
	}
	return "", false
}
