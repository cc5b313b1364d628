// Package tag provides the Tag domain entity.
package tag

// Tag is a folksonomy tag with its provider count.
// Percent is set only on artist tag distributions.
type Tag struct {
	Name    string   `json:"name"`
	Count   int64    `json:"count"`
	Percent *float64 `json:"percent,omitempty"`
}
