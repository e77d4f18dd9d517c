package allocator

import (
	"errors"
	"testing"

	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	available := []Available{
		{Kind: catalog.Ruby, UnitPrice: 1, Category: catalog.Low, Quantity: 3},
		{Kind: catalog.Emerald, UnitPrice: 10, Category: catalog.Mid, Quantity: 1},
	}

	tests := []struct {
		name    string
		items   []Item
		target  float64
		wantErr error
	}{
		{
			name:   "Valid",
			items:  []Item{item(catalog.Ruby, 3), item(catalog.Emerald, 1)},
			target: 13,
		},
		{
			name:   "WithinTolerance",
			items:  []Item{item(catalog.Ruby, 3)},
			target: 3.004,
		},
		{
			name:    "TotalMismatch",
			items:   []Item{item(catalog.Ruby, 2)},
			target:  3,
			wantErr: ErrValidation,
		},
		{
			name:    "ExceedsAvailability",
			items:   []Item{item(catalog.Emerald, 2)},
			target:  20,
			wantErr: ErrValidation,
		},
		{
			name:    "UnknownKind",
			items:   []Item{item(catalog.Magic, 1)},
			target:  100,
			wantErr: ErrValidation,
		},
		{
			name:    "NonPositiveQuantity",
			items:   []Item{{Kind: catalog.Ruby, UnitPrice: 1}},
			target:  0,
			wantErr: ErrValidation,
		},
		{
			name:    "InconsistentLineValue",
			items:   []Item{{Kind: catalog.Ruby, UnitPrice: 1, Quantity: 3, LineValue: 4}},
			target:  3,
			wantErr: ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.items, tc.target, available); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}
