// Package mirror defines the on-disk layout of captured upstream responses,
// shared by the tool that writes captures and the server that replays them.
package mirror

import (
	"html"
	"path/filepath"
	"strings"
	"unicode"
)

// MetaPath is where the record for (type, id) is stored.
func MetaPath(dir, contentType, id string) string {
	return filepath.Join(dir, "meta", contentType, id+".json")
}

// SearchPath is where the search page for query q is stored.
func SearchPath(dir, q string) string {
	return filepath.Join(dir, "search", Slug(q)+".html")
}

// DefaultSearchPath is served when no page matches the query.
func DefaultSearchPath(dir string) string {
	return filepath.Join(dir, "search", "default.html")
}

// PosterPath is where the poster of id is stored; ext includes the dot.
func PosterPath(dir, id, ext string) string {
	return filepath.Join(dir, "posters", id+ext)
}

// Resolve maps a request path onto a file under dir, refusing anything that
// would escape it.
func Resolve(dir, urlPath string) (string, bool) {
	rel := filepath.Clean("/" + urlPath)
	if rel == "/" {
		return "", false
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	p := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

// Slug lowercases q and joins its letter/digit runs with dashes.
func Slug(q string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(q)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// RatingPage renders rating panel text back into a minimal search page whose
// selector region flattens to the same lines.
func RatingPage(selectorClass, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "<div>" + html.EscapeString(l) + "</div>"
	}
	return "<!doctype html>\n<html><head><meta charset=\"utf-8\"></head><body>\n<div class=\"" +
		html.EscapeString(selectorClass) + "\">" + strings.Join(lines, "") + "</div>\n</body></html>\n"
}
