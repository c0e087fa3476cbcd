package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartUnitEntry is one purchased unit. A product held three times appears as
// three entries with the same ID; there is no quantity field.
type CartUnitEntry struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	Description string
	Thumbnail   string
	Tags        []string
}

type unitJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Price       json.RawMessage `json:"price"`
	Description string          `json:"description,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// MarshalJSON writes the price as a bare JSON number.
func (e CartUnitEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(unitJSON{
		ID:          e.ID,
		Title:       e.Title,
		Price:       json.RawMessage(e.Price.String()),
		Description: e.Description,
		Thumbnail:   e.Thumbnail,
		Tags:        e.Tags,
	})
}

// UnmarshalJSON accepts the price as a number or a numeric string.
func (e *CartUnitEntry) UnmarshalJSON(b []byte) error {
	var raw unitJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var price decimal.Decimal
	if len(raw.Price) > 0 && string(raw.Price) != "null" {
		if err := price.UnmarshalJSON(raw.Price); err != nil {
			return fmt.Errorf("entry %q: price: %w", raw.ID, err)
		}
	}

	*e = CartUnitEntry{
		ID:          raw.ID,
		Title:       raw.Title,
		Price:       price,
		Description: raw.Description,
		Thumbnail:   raw.Thumbnail,
		Tags:        raw.Tags,
	}
	return nil
}

// Count is the quantity of id held in entries.
func Count(entries []CartUnitEntry, id string) int {
	n := 0
	for _, e := range entries {
		if e.ID == id {
			n++
		}
	}
	return n
}

// Quantities counts units per product id.
func Quantities(entries []CartUnitEntry) map[string]int {
	out := make(map[string]int)
	for _, e := range entries {
		out[e.ID]++
	}
	return out
}

// RemoveFirst drops the first entry with id. It reports whether one matched.
func RemoveFirst(entries []CartUnitEntry, id string) ([]CartUnitEntry, bool) {
	for i, e := range entries {
		if e.ID == id {
			out := make([]CartUnitEntry, 0, len(entries)-1)
			out = append(out, entries[:i]...)
			return append(out, entries[i+1:]...), true
		}
	}
	return entries, false
}

// RemoveAll drops every entry with id and returns how many were dropped.
func RemoveAll(entries []CartUnitEntry, id string) ([]CartUnitEntry, int) {
	out := make([]CartUnitEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}
