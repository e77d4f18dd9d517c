package allocator

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// Category shares of the target for the SMART strategy.
const (
	midShare  = 0.6
	lowShare  = 0.3
	highShare = 0.1
)

// allocateSmart fills MID, LOW and HIGH gems towards their share of the
// target, then tops up any shortfall cheapest-first across all kinds. When the
// top-up still leaves a gap it falls back to the exact solver, first over the
// gems left untouched and then over the whole inventory, so SMART only fails
// when no exact combination exists at all.
func allocateSmart(available []Available, target float64) (map[catalog.Kind]int, error) {
	var low, mid, high []Available
	for _, a := range available {
		switch a.Category {
		case catalog.Low:
			low = append(low, a)
		case catalog.Mid:
			mid = append(mid, a)
		case catalog.High:
			high = append(high, a)
		}
	}
	high = descending(high)

	used := make(map[catalog.Kind]int, len(available))
	allocated := 0.0
	for _, pass := range []struct {
		order []Available
		share float64
	}{
		{mid, midShare},
		{low, lowShare},
		{high, highShare},
	} {
		// A pass may overshoot its budget by Tolerance, so later passes are
		// capped by what is still unallocated.
		allocated += fill(pass.order, used, min(pass.share*target, target-allocated))
	}

	if shortfall := target - allocated; shortfall > Tolerance {
		allocated += fill(available, used, shortfall)
	}
	if withinTolerance(allocated, target) {
		return used, nil
	}

	if extra, err := solveExact(leftover(available, used), target-allocated); err == nil {
		for kind, qty := range extra {
			used[kind] += qty
		}
		return used, nil
	}

	full, err := solveExact(available, target)
	if err != nil {
		if errors.Is(err, ErrTargetTooLarge) {
			return nil, fmt.Errorf("%w: SMART left %.2f of %.2f unallocated", ErrUnreachable, target-allocated, target)
		}
		return nil, err
	}
	return full, nil
}

func leftover(available []Available, used map[catalog.Kind]int) []Available {
	out := make([]Available, 0, len(available))
	for _, a := range available {
		if rest := a.Quantity - used[a.Kind]; rest > 0 {
			a.Quantity = rest
			out = append(out, a)
		}
	}
	return out
}
