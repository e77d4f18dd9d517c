// Package allocator selects gems from an inventory whose total value matches
// a target exactly. Every function here is pure: inputs are never mutated and
// identical inputs always produce identical allocations.
package allocator

import (
	"fmt"
	"math"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// Allocator describes the behaviour required from a gem allocator.
type Allocator interface {
	Allocate(strategy Strategy, inventory []InventoryLine, target float64) (Allocation, error)
}

type solver func(available []Available, target float64) (map[catalog.Kind]int, error)

var solvers = map[Strategy]solver{
	Small: allocateSmall,
	Smart: allocateSmart,
	Big:   allocateBig,
	Exact: allocateExact,
}

// Engine allocates gems against a fixed catalog. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
}

// New creates an Engine for cat. A nil catalog selects catalog.Default.
func New(cat *catalog.Catalog) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{catalog: cat}
}

// Catalog returns the denomination table the engine prices gems with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Allocate projects inventory onto the engine's catalog and allocates target
// with the given strategy.
func (e *Engine) Allocate(strategy Strategy, inventory []InventoryLine, target float64) (Allocation, error) {
	return e.AllocateAvailable(strategy, Project(inventory, e.catalog), target)
}

// AllocateAvailable allocates target from an already projected working set.
func (e *Engine) AllocateAvailable(strategy Strategy, available []Available, target float64) (Allocation, error) {
	solve, ok := solvers[strategy]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= Tolerance {
		return Allocation{}, fmt.Errorf("%w: got %v", ErrInvalidTarget, target)
	}
	if target > MaxTarget {
		return Allocation{}, fmt.Errorf("%w: %v exceeds the maximum of %v", ErrInvalidTarget, target, float64(MaxTarget))
	}

	working := normalizeAvailable(available)
	if len(working) == 0 {
		return Allocation{}, ErrNoInventory
	}

	used, err := solve(working, target)
	if err != nil {
		return Allocation{}, err
	}

	items := buildItems(working, used)
	if err := Validate(items, target, working); err != nil {
		return Allocation{}, err
	}

	total := 0.0
	for _, item := range items {
		total += item.LineValue
	}

	return Allocation{
		Strategy:   strategy,
		Target:     target,
		Items:      items,
		TotalValue: total,
	}, nil
}

// Allocate runs strategy against inventory priced by the default catalog.
func Allocate(strategy Strategy, inventory []InventoryLine, target float64) (Allocation, error) {
	return New(nil).Allocate(strategy, inventory, target)
}

func buildItems(working []Available, used map[catalog.Kind]int) []Item {
	items := make([]Item, 0, len(used))
	for _, a := range working {
		qty := used[a.Kind]
		if qty <= 0 {
			continue
		}
		items = append(items, Item{
			Kind:      a.Kind,
			UnitPrice: a.UnitPrice,
			Quantity:  qty,
			LineValue: a.UnitPrice * float64(qty),
		})
	}
	return items
}
