package allocator

import (
	"fmt"
	"math"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

// maxExactCents bounds the solver table to one entry per cent up to $10,000.
const maxExactCents = 1_000_000

type chunk struct {
	kind   catalog.Kind
	count  int
	weight int
}

func allocateExact(available []Available, target float64) (map[catalog.Kind]int, error) {
	return solveExact(available, target)
}

// solveExact searches for any combination that sums to target exactly while
// respecting every ceiling. Quantities are split into power-of-two chunks and
// solved as a 0/1 reachability table over integer cents. Expensive kinds are
// offered first so they claim amounts before cheaper ones, which keeps the
// gem count low and the result deterministic.
func solveExact(available []Available, target float64) (map[catalog.Kind]int, error) {
	goal := toCents(target)
	if goal <= 0 {
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidTarget, target)
	}
	if goal > maxExactCents {
		return nil, fmt.Errorf("%w: %.2f", ErrTargetTooLarge, target)
	}

	chunks := splitChunks(descending(available), goal)

	// from[a] is the index of the chunk that first reached amount a, or -1.
	from := make([]int32, goal+1)
	for i := range from {
		from[i] = -1
	}
	from[0] = int32(len(chunks))

	for ci, ch := range chunks {
		for amount := goal; amount >= ch.weight; amount-- {
			if from[amount] == -1 && from[amount-ch.weight] != -1 {
				from[amount] = int32(ci)
			}
		}
		if from[goal] != -1 {
			break
		}
	}

	if from[goal] == -1 {
		return nil, fmt.Errorf("%w: no combination of available gems sums to %.2f", ErrUnreachable, target)
	}

	used := make(map[catalog.Kind]int, len(available))
	for amount := goal; amount > 0; {
		ch := chunks[from[amount]]
		used[ch.kind] += ch.count
		amount -= ch.weight
	}
	return used, nil
}

func splitChunks(order []Available, goal int) []chunk {
	var chunks []chunk
	for _, a := range order {
		price := toCents(a.UnitPrice)
		if price <= 0 || price > goal {
			continue
		}
		remaining := min(a.Quantity, goal/price)
		for size := 1; remaining > 0; size *= 2 {
			n := min(size, remaining)
			chunks = append(chunks, chunk{kind: a.Kind, count: n, weight: n * price})
			remaining -= n
		}
	}
	return chunks
}

func toCents(v float64) int {
	return int(math.Round(v * 100))
}
