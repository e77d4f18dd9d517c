package allocator

import (
	"fmt"
	"math"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// Validate recomputes the value and per-kind usage of items and rejects the
// allocation when the total misses target by more than Tolerance or any kind
// uses more gems than available allows.
func Validate(items []Item, target float64, available []Available) error {
	limits := ceilings(available)
	usedByKind := make(map[catalog.Kind]int, len(items))

	total := 0.0
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %s has non-positive quantity %d", ErrValidation, item.Kind, item.Quantity)
		}
		if !withinTolerance(item.LineValue, item.UnitPrice*float64(item.Quantity)) {
			return fmt.Errorf("%w: %s line value %.2f does not equal %d x %.2f",
				ErrValidation, item.Kind, item.LineValue, item.Quantity, item.UnitPrice)
		}
		usedByKind[item.Kind] += item.Quantity
		if usedByKind[item.Kind] > limits[item.Kind] {
			return fmt.Errorf("%w: %s uses %d but only %d available",
				ErrValidation, item.Kind, usedByKind[item.Kind], limits[item.Kind])
		}
		total += item.UnitPrice * float64(item.Quantity)
	}

	if math.IsNaN(total) || !withinTolerance(total, target) {
		return fmt.Errorf("%w: total %.2f does not match target %.2f", ErrValidation, total, target)
	}
	return nil
}
