package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

var (
	// ErrInvalidInventory indicates the provided inventory lines violate validation rules.
	ErrInvalidInventory = errors.New("inventory lines must reference known gems with 0 <= frozen <= owned")
	// ErrInvalidUser indicates an empty user identifier.
	ErrInvalidUser = errors.New("user id must not be empty")
	// ErrInsufficientGems indicates a commitment no longer fits the user's available gems.
	ErrInsufficientGems = errors.New("not enough available gems to commit allocation")
)

// Storage provides access to per-user gem inventories.
type Storage interface {
	GetInventory(userID string) ([]allocator.InventoryLine, error)
	SetInventory(userID string, lines []allocator.InventoryLine) error
	Freeze(userID string, items []allocator.Item) error
}

// MemoryStorage keeps inventories in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	catalog *catalog.Catalog

	mu          sync.RWMutex
	inventories map[string][]allocator.InventoryLine
}

// NewMemoryStorage initialises an empty store validating kinds against cat.
// A nil catalog selects catalog.Default.
func NewMemoryStorage(cat *catalog.Catalog) *MemoryStorage {
	if cat == nil {
		cat = catalog.Default()
	}
	return &MemoryStorage{
		catalog:     cat,
		inventories: make(map[string][]allocator.InventoryLine),
	}
}

// GetInventory returns a defensive copy of the user's inventory. Unknown users
// have an empty inventory.
func (s *MemoryStorage) GetInventory(userID string) ([]allocator.InventoryLine, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.inventories[userID]), nil
}

// SetInventory validates, normalises, and stores the provided inventory lines.
func (s *MemoryStorage) SetInventory(userID string, lines []allocator.InventoryLine) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUser
	}
	normalized, err := s.normalize(lines)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.inventories[userID] = normalized
	s.mu.Unlock()

	return nil
}

// Freeze reserves the gems of a committed allocation. It checks availability
// and applies the reservation under one lock, so either every item is frozen
// or none is.
func (s *MemoryStorage) Freeze(userID string, items []allocator.Item) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := clone(s.inventories[userID])
	index := make(map[catalog.Kind]int, len(current))
	for i, line := range current {
		index[line.Kind] = i
	}

	for _, it := range items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: %s quantity %d", ErrInvalidInventory, it.Kind, it.Quantity)
		}
		i, ok := index[it.Kind]
		if !ok || current[i].Available() < it.Quantity {
			return fmt.Errorf("%w: %s", ErrInsufficientGems, it.Kind)
		}
		current[i].Frozen += it.Quantity
	}

	s.inventories[userID] = current
	return nil
}

func (s *MemoryStorage) normalize(lines []allocator.InventoryLine) ([]allocator.InventoryLine, error) {
	merged := make(map[catalog.Kind]allocator.InventoryLine, len(lines))
	for _, line := range lines {
		if _, ok := s.catalog.Lookup(line.Kind); !ok {
			return nil, fmt.Errorf("%w: unknown gem %q", ErrInvalidInventory, line.Kind)
		}
		if line.Owned < 0 || line.Frozen < 0 || line.Frozen > line.Owned {
			return nil, fmt.Errorf("%w: %s owned=%d frozen=%d", ErrInvalidInventory, line.Kind, line.Owned, line.Frozen)
		}
		m := merged[line.Kind]
		m.Kind = line.Kind
		m.Owned += line.Owned
		m.Frozen += line.Frozen
		merged[line.Kind] = m
	}

	out := make([]allocator.InventoryLine, 0, len(merged))
	for _, d := range s.catalog.Denominations() {
		if line, ok := merged[d.Kind]; ok {
			out = append(out, line)
		}
	}
	return out, nil
}

func clone(src []allocator.InventoryLine) []allocator.InventoryLine {
	if len(src) == 0 {
		return []allocator.InventoryLine{}
	}

	out := make([]allocator.InventoryLine, len(src))
	copy(out, src)
	return out
}
