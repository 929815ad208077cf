// Package ratings turns the flattened text of a search-result rating panel
// into normalized (source, score) pairs.
//
// The panel format is not under our control. Each line is expected to look
// like "86% · Rotten Tomatoes" or "8.2/10 · IMDb", but the separator has been
// observed both as a middle dot and as the replacement character it decodes
// to on some responses, so extraction walks a chain of delimiters.
package ratings

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedRatingText reports that no line produced a (score, source) pair
// under any delimiter in the chain.
var ErrMalformedRatingText = errors.New("ratings: no delimited rating lines")

const (
	// PrimaryDelimiter is the middle dot after a bad charset round-trip.
	PrimaryDelimiter   = "\uFFFD"
	SecondaryDelimiter = "·"
)

// Tuple is one scraped rating.
type Tuple struct {
	Source  string  // normalized label, e.g. "rotten_tomatoes"
	Score   string  // score text with any "/N" or "%" suffix removed
	Value   float64 // numeric form of Score, valid when Numeric is set
	Numeric bool
}

// Ratings is an ordered set of tuples with unique sources, in document order.
type Ratings []Tuple

// Get returns the tuple for source.
func (r Ratings) Get(source string) (Tuple, bool) {
	for _, t := range r {
		if t.Source == source {
			return t, true
		}
	}
	return Tuple{}, false
}

// Map returns the source -> score mapping.
func (r Ratings) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, t := range r {
		out[t.Source] = t.Score
	}
	return out
}

// String renders the ratings as the description suffix shown to users:
// "(rotten_tomatoes: 86) (metacritic: 91)".
func (r Ratings) String() string {
	parts := make([]string, 0, len(r))
	for _, t := range r {
		parts = append(parts, "("+t.Source+": "+t.Score+")")
	}
	return strings.Join(parts, " ")
}

// Extractor parses a rating panel's text.
//
// Implementations never fail hard: the returned Ratings is always usable
// (possibly empty) and the error only explains why it is empty.
type Extractor interface {
	Extract(text string) (Ratings, error)
}

// DelimiterExtractor splits lines on the first delimiter of its chain that
// yields at least one two-field line.
type DelimiterExtractor struct {
	Delimiters []string
}

var _ Extractor = (*DelimiterExtractor)(nil)

// NewExtractor returns an extractor for the given delimiter chain, or the
// default chain when none is given.
func NewExtractor(delimiters ...string) *DelimiterExtractor {
	if len(delimiters) == 0 {
		delimiters = []string{PrimaryDelimiter, SecondaryDelimiter}
	}
	return &DelimiterExtractor{Delimiters: delimiters}
}

// Parse extracts ratings with the default delimiter chain.
func Parse(text string) (Ratings, error) {
	return NewExtractor().Extract(text)
}

// Extract implements Extractor. When a source appears more than once the
// first occurrence wins.
func (e *DelimiterExtractor) Extract(text string) (Ratings, error) {
	rows := e.split(text)
	out := make(Ratings, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, fields := range rows {
		source := normalizeSource(fields[1])
		score := normalizeScore(fields[0])
		if source == "" || score == "" {
			continue
		}
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}

		t := Tuple{Source: source, Score: score}
		if v, err := strconv.ParseFloat(score, 64); err == nil {
			t.Value, t.Numeric = v, true
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return Ratings{}, ErrMalformedRatingText
	}
	return out, nil
}

func (e *DelimiterExtractor) split(text string) [][]string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for _, delim := range e.Delimiters {
		if delim == "" {
			continue
		}
		var rows [][]string
		for _, line := range lines {
			if fields := strings.Split(line, delim); len(fields) >= 2 {
				rows = append(rows, fields)
			}
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func normalizeSource(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

func normalizeScore(score string) string {
	score = strings.TrimSpace(score)
	if before, _, ok := strings.Cut(score, "/"); ok {
		score = before
	} else if before, _, ok := strings.Cut(score, "%"); ok {
		score = before
	}
	return strings.TrimSpace(score)
}
