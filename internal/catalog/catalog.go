// Package catalog holds the fixed table of gem denominations and their categories.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a gem denomination, e.g. "Ruby".
type Kind string

const (
	Ruby       Kind = "Ruby"
	Amber      Kind = "Amber"
	Topaz      Kind = "Topaz"
	Emerald    Kind = "Emerald"
	Aquamarine Kind = "Aquamarine"
	Sapphire   Kind = "Sapphire"
	Magic      Kind = "Magic"
)

// Category groups kinds by relative value. Only the SMART strategy looks at it.
type Category int

const (
	Low Category = iota + 1
	Mid
	High
)

func (c Category) String() string {
	switch c {
	case Low:
		return "LOW"
	case Mid:
		return "MID"
	case High:
		return "HIGH"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// MarshalText lets categories render as LOW/MID/HIGH in JSON.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ErrInvalidCatalog is returned when a denomination table violates catalog rules.
var ErrInvalidCatalog = errors.New("invalid denomination catalog")

// Denomination is a gem kind with its fixed unit price and category.
type Denomination struct {
	Kind      Kind     `json:"kind"`
	UnitPrice float64  `json:"unitPrice"`
	Category  Category `json:"category"`
}

// Catalog is an immutable lookup of denominations. It is safe for concurrent use.
type Catalog struct {
	ordered []Denomination
	byKind  map[Kind]Denomination
}

var defaultDenominations = []Denomination{
	{Kind: Ruby, UnitPrice: 1, Category: Low},
	{Kind: Amber, UnitPrice: 2, Category: Low},
	{Kind: Topaz, UnitPrice: 5, Category: Mid},
	{Kind: Emerald, UnitPrice: 10, Category: Mid},
	{Kind: Aquamarine, UnitPrice: 25, Category: Mid},
	{Kind: Sapphire, UnitPrice: 50, Category: High},
	{Kind: Magic, UnitPrice: 100, Category: High},
}

var defaultCatalog = mustNew(defaultDenominations)

// Default returns the built-in seven-kind catalog.
func Default() *Catalog {
	return defaultCatalog
}

// New validates denoms and builds a Catalog ordered ascending by unit price.
// Ties on price are broken by kind name so ordering stays deterministic.
func New(denoms []Denomination) (*Catalog, error) {
	if len(denoms) == 0 {
		return nil, fmt.Errorf("%w: no denominations", ErrInvalidCatalog)
	}

	byKind := make(map[Kind]Denomination, len(denoms))
	for _, d := range denoms {
		if strings.TrimSpace(string(d.Kind)) == "" {
			return nil, fmt.Errorf("%w: empty kind", ErrInvalidCatalog)
		}
		if !(d.UnitPrice > 0) {
			return nil, fmt.Errorf("%w: %s has non-positive price %v", ErrInvalidCatalog, d.Kind, d.UnitPrice)
		}
		if d.Category < Low || d.Category > High {
			return nil, fmt.Errorf("%w: %s has unknown category %d", ErrInvalidCatalog, d.Kind, int(d.Category))
		}
		if _, dup := byKind[d.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %s", ErrInvalidCatalog, d.Kind)
		}
		byKind[d.Kind] = d
	}

	ordered := make([]Denomination, len(denoms))
	copy(ordered, denoms)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].UnitPrice != ordered[j].UnitPrice {
			return ordered[i].UnitPrice < ordered[j].UnitPrice
		}
		return ordered[i].Kind < ordered[j].Kind
	})

	return &Catalog{ordered: ordered, byKind: byKind}, nil
}

func mustNew(denoms []Denomination) *Catalog {
	c, err := New(denoms)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the denomination registered for kind.
func (c *Catalog) Lookup(kind Kind) (Denomination, bool) {
	d, ok := c.byKind[kind]
	return d, ok
}

// Denominations returns a copy of the catalog ordered ascending by unit price.
func (c *Catalog) Denominations() []Denomination {
	out := make([]Denomination, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ParseKind resolves a kind name case-insensitively against the catalog.
func (c *Catalog) ParseKind(raw string) (Kind, bool) {
	raw = strings.TrimSpace(raw)
	for _, d := range c.ordered {
		if strings.EqualFold(string(d.Kind), raw) {
			return d.Kind, true
		}
	}
	return "", false
}
