package allocator

import (
	"fmt"
	"math"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// fill runs the single-unit greedy loop: on every step it takes one gem of
// the first kind in order that still has availability and fits the remaining
// budget. It stops when the budget is spent or a full scan finds nothing
// eligible, and returns the value it allocated. used is updated in place.
//
// Consecutive steps on the same kind are taken as one batch, so the number of
// iterations depends on the number of kinds rather than on the target.
func fill(order []Available, used map[catalog.Kind]int, budget float64) float64 {
	remaining := budget
	allocated := 0.0
	for remaining > Tolerance {
		picked := false
		for _, a := range order {
			left := a.Quantity - used[a.Kind]
			if left <= 0 || a.UnitPrice > remaining+Tolerance {
				continue
			}
			n := run(a.UnitPrice, remaining, left)
			value := a.UnitPrice * float64(n)
			used[a.Kind] += n
			remaining -= value
			allocated += value
			picked = true
			break
		}
		if !picked {
			break
		}
	}
	return allocated
}

// run returns how many gems of price the single-unit loop takes in a row: it
// keeps going while a gem still fits and the budget is above Tolerance.
func run(price, remaining float64, left int) int {
	fits := math.Floor((remaining + Tolerance) / price)
	steps := math.Ceil((remaining - Tolerance) / price)
	n := min(fits, steps)
	switch {
	case n >= float64(left):
		return left
	case n < 1:
		return 1
	default:
		return int(n)
	}
}

func allocateSmall(available []Available, target float64) (map[catalog.Kind]int, error) {
	return greedy(Small, available, target)
}

func allocateBig(available []Available, target float64) (map[catalog.Kind]int, error) {
	return greedy(Big, descending(available), target)
}

func greedy(strategy Strategy, order []Available, target float64) (map[catalog.Kind]int, error) {
	used := make(map[catalog.Kind]int, len(order))
	allocated := fill(order, used, target)
	if !withinTolerance(allocated, target) {
		return nil, fmt.Errorf("%w: %s stopped with %.2f of %.2f unallocated",
			ErrUnreachable, strategy, target-allocated, target)
	}
	return used, nil
}

func descending(available []Available) []Available {
	out := make([]Available, len(available))
	for i, a := range available {
		out[len(available)-1-i] = a
	}
	return out
}
