package allocator

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// Tolerance is the absolute difference under which two values are considered equal.
const Tolerance = 0.01

// MaxTarget is the largest target the engine accepts. Values up to it keep
// cent precision in a float64.
const MaxTarget = 1_000_000_000

// Strategy selects which denominations the engine prefers.
type Strategy string

const (
	// Small spends the cheapest gems first.
	Small Strategy = "SMALL"
	// Smart spreads the target 60/30/10 over MID, LOW and HIGH gems.
	Smart Strategy = "SMART"
	// Big spends the most expensive gems first.
	Big Strategy = "BIG"
	// Exact finds an exact combination whenever one exists.
	Exact Strategy = "EXACT"
)

// Strategies lists every strategy the engine understands.
func Strategies() []Strategy {
	return []Strategy{Small, Smart, Big, Exact}
}

// ParseStrategy resolves a strategy identifier case-insensitively.
func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case Small, Smart, Big, Exact:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, raw)
	}
}

// InventoryLine is a per-kind snapshot supplied by the inventory source.
// Callers must keep Frozen <= Owned.
type InventoryLine struct {
	Kind   catalog.Kind `json:"kind" yaml:"kind"`
	Owned  int          `json:"ownedQuantity" yaml:"owned"`
	Frozen int          `json:"frozenQuantity" yaml:"frozen"`
}

// Available returns the quantity not reserved by other commitments.
func (l InventoryLine) Available() int {
	return l.Owned - l.Frozen
}

// Available is a projected working-set entry: a kind the user can still spend.
type Available struct {
	Kind      catalog.Kind
	UnitPrice float64
	Category  catalog.Category
	Quantity  int
}

// Item is one (denomination, quantity) pair of an allocation.
type Item struct {
	Kind      catalog.Kind `json:"kind"`
	UnitPrice float64      `json:"unitPrice"`
	Quantity  int          `json:"quantity"`
	LineValue float64      `json:"lineValue"`
}

// Allocation is a successful exact match. Items are sorted ascending by unit price.
type Allocation struct {
	Strategy   Strategy
	Target     float64
	Items      []Item
	TotalValue float64
}

// TotalGems returns the number of gems committed by the allocation.
func (a Allocation) TotalGems() int {
	total := 0
	for _, item := range a.Items {
		total += item.Quantity
	}
	return total
}

func withinTolerance(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= Tolerance
}
