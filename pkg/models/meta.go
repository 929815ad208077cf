package models

import (
	"encoding/json"
	"fmt"
)

// Meta is the normalized form of a Cinemeta meta object.
//
// Only the fields the enrichment pipeline reads or rewrites are typed.
// Everything else the upstream sends (genres, cast, videos, links...) is kept
// in Extra and written back untouched, so a record that goes through the
// pipeline without being enriched serializes to the same document.
type Meta struct {
	ID          string
	Type        string
	Name        string
	Description string
	Poster      string // http(s) URL or data: URI
	Extra       map[string]json.RawMessage
}

// Valid reports whether the record carries the fields the pipeline requires
// at the fetch boundary.
func (m *Meta) Valid() bool {
	return m != nil && m.ID != ""
}

// Clone returns a copy that shares no map with m.
func (m Meta) Clone() Meta {
	if m.Extra != nil {
		extra := make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			extra[k] = v
		}
		m.Extra = extra
	}
	return m
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	*m = Meta{}
	if err := takeStrings(raw, map[string]*string{
		"id":          &m.ID,
		"type":        &m.Type,
		"name":        &m.Name,
		"description": &m.Description,
		"poster":      &m.Poster,
	}); err != nil {
		return err
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	putString(out, "id", m.ID)
	putString(out, "type", m.Type)
	putString(out, "name", m.Name)
	putString(out, "description", m.Description)
	putString(out, "poster", m.Poster)
	return json.Marshal(out)
}

// CatalogPage is one page of a Cinemeta catalog. Pagination hints and any
// other page-level fields live in Extra and pass through unchanged.
type CatalogPage struct {
	Metas []Meta
	Extra map[string]json.RawMessage
}

func (p *CatalogPage) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode catalog page: %w", err)
	}
	*p = CatalogPage{}
	if v, ok := raw["metas"]; ok {
		delete(raw, "metas")
		if string(v) != "null" {
			if err := json.Unmarshal(v, &p.Metas); err != nil {
				return fmt.Errorf("decode catalog metas: %w", err)
			}
		}
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

func (p CatalogPage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	metas := p.Metas
	if metas == nil {
		metas = []Meta{}
	}
	out["metas"] = metas
	return json.Marshal(out)
}

func takeStrings(raw map[string]json.RawMessage, fields map[string]*string) error {
	for key, dst := range fields {
		v, ok := raw[key]
		if !ok {
			continue
		}
		delete(raw, key)
		if string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("decode meta field %q: %w", key, err)
		}
	}
	return nil
}

func putString(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}
