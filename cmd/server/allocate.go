package main

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/config"
)

// runAllocate performs a single allocation and writes a human readable
// breakdown to w.
func runAllocate(w io.Writer, strategyName string, target float64, inventoryStr string) error {
	strategy, err := allocator.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	inventory, err := config.ParseInventory(inventoryStr)
	if err != nil {
		return fmt.Errorf("parse inventory: %w", err)
	}

	result, err := allocator.Allocate(strategy, inventory, target)
	if err != nil {
		return fmt.Errorf("%s allocation of %.2f failed: %w", strategy, target, err)
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "strategy: %s\n", result.Strategy)
	p.Fprintf(w, "target:   %.2f\n", result.Target)
	for _, item := range result.Items {
		p.Fprintf(w, "  %-10s %6d x %8.2f = %10.2f\n", item.Kind, item.Quantity, item.UnitPrice, item.LineValue)
	}
	p.Fprintf(w, "total:    %.2f (%d gems)\n", result.TotalValue, result.TotalGems())
	return nil
}
