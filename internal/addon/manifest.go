package addon

import "ratingposter/pkg/models"

// Manifest is the addon descriptor served at /manifest.json.
type Manifest struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Resources   []string          `json:"resources"`
	Types       []string          `json:"types"`
	IDPrefixes  []string          `json:"idPrefixes"`
	Catalogs    []CatalogManifest `json:"catalogs"`
}

type CatalogManifest struct {
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Extra []ExtraOption `json:"extra,omitempty"`
}

type ExtraOption struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired,omitempty"`
}

var catalogNames = map[models.CatalogKind]string{
	models.KindTrending:   "Trending",
	models.KindFeatured:   "Featured",
	models.KindSearch:     "Search",
	models.KindBestOfYear: "Best of the Year",
}

// DefaultManifest lists every catalog kind for movies and series.
func DefaultManifest(version string) Manifest {
	if version == "" {
		version = "1.0.0"
	}
	types := []string{"movie", "series"}
	m := Manifest{
		ID:          "community.ratingposter",
		Version:     version,
		Name:        "Rating Poster",
		Description: "Cinemeta catalogs with review scores in the description and rating badges on the poster.",
		Resources:   []string{"catalog", "meta"},
		Types:       types,
		IDPrefixes:  []string{"tt"},
	}
	for _, t := range types {
		for _, kind := range models.CatalogKinds {
			c := CatalogManifest{Type: t, ID: string(kind), Name: catalogNames[kind]}
			if kind == models.KindSearch {
				c.Extra = []ExtraOption{{Name: "search", IsRequired: true}, {Name: "skip"}}
			} else {
				c.Extra = []ExtraOption{{Name: "genre"}, {Name: "skip"}}
			}
			m.Catalogs = append(m.Catalogs, c)
		}
	}
	return m
}
