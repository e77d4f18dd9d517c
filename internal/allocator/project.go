package allocator

import (
	"sort"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// Project maps raw inventory lines onto the catalog and keeps only kinds with
// positive availability. Lines for kinds unknown to cat or with frozen above
// owned are ignored, and repeated lines for the same kind are summed. The
// result is ordered ascending by unit price.
func Project(inventory []InventoryLine, cat *catalog.Catalog) []Available {
	if cat == nil {
		cat = catalog.Default()
	}

	quantities := make(map[catalog.Kind]int, len(inventory))
	for _, line := range inventory {
		if _, ok := cat.Lookup(line.Kind); !ok {
			continue
		}
		if qty := line.Available(); qty > 0 {
			quantities[line.Kind] += qty
		}
	}

	out := make([]Available, 0, len(quantities))
	for _, d := range cat.Denominations() {
		qty := quantities[d.Kind]
		if qty <= 0 {
			continue
		}
		out = append(out, Available{
			Kind:      d.Kind,
			UnitPrice: d.UnitPrice,
			Category:  d.Category,
			Quantity:  qty,
		})
	}
	return out
}

// normalizeAvailable returns a private copy of available with duplicate kinds
// merged, empty or unpriced entries dropped, and entries sorted ascending by
// price (kind name breaks ties).
func normalizeAvailable(available []Available) []Available {
	index := make(map[catalog.Kind]int, len(available))
	out := make([]Available, 0, len(available))
	for _, a := range available {
		if a.Quantity <= 0 || !(a.UnitPrice > 0) {
			continue
		}
		if i, ok := index[a.Kind]; ok {
			out[i].Quantity += a.Quantity
			continue
		}
		index[a.Kind] = len(out)
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UnitPrice != out[j].UnitPrice {
			return out[i].UnitPrice < out[j].UnitPrice
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func ceilings(available []Available) map[catalog.Kind]int {
	out := make(map[catalog.Kind]int, len(available))
	for _, a := range available {
		if a.Quantity > 0 {
			out[a.Kind] += a.Quantity
		}
	}
	return out
}
