package models

import "strings"

// CatalogKind selects which upstream catalog a page comes from.
type CatalogKind string

const (
	KindTrending   CatalogKind = "trending"
	KindFeatured   CatalogKind = "featured" // top rated
	KindSearch     CatalogKind = "search"
	KindBestOfYear CatalogKind = "best_yoy"
)

// CatalogKinds lists the supported kinds in manifest order.
var CatalogKinds = []CatalogKind{KindTrending, KindFeatured, KindSearch, KindBestOfYear}

// ParseCatalogKind maps a catalog id to its kind.
func ParseCatalogKind(s string) (CatalogKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range CatalogKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// CatalogRequest identifies one catalog page. Genre doubles as the year for
// KindBestOfYear.
type CatalogRequest struct {
	Kind   CatalogKind
	Type   string
	Genre  string
	Search string
	Skip   int
}
