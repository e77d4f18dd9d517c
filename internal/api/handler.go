package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
	"github.com/eugenenazirov/gem-allocator/internal/metrics"
	"github.com/eugenenazirov/gem-allocator/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires allocator and storage dependencies into HTTP handlers.
type Handler struct {
	allocator allocator.Allocator
	storage   storage.Storage
	catalog   *catalog.Catalog
	metrics   metrics.Recorder

	defaultStrategy allocator.Strategy
	clock           func() time.Time

	mu        sync.RWMutex
	updatedAt map[string]time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records every allocation attempt on rec.
func WithMetrics(rec metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		if rec != nil {
			h.metrics = rec
		}
	}
}

// WithDefaultStrategy sets the strategy used when a request omits one.
func WithDefaultStrategy(s allocator.Strategy) HandlerOption {
	return func(h *Handler) {
		h.defaultStrategy = s
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(alloc allocator.Allocator, store storage.Storage, cat *catalog.Catalog, opts ...HandlerOption) *Handler {
	if cat == nil {
		cat = catalog.Default()
	}
	h := &Handler{
		allocator:       alloc,
		storage:         store,
		catalog:         cat,
		metrics:         metrics.Nop{},
		defaultStrategy: allocator.Smart,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		updatedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDenominations(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := denominationsResponse{
		Denominations: h.catalog.Denominations(),
		Strategies:    allocator.Strategies(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	lines, err := h.storage.GetInventory(userID)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.inventoryResponse(userID, lines, ""))
}

func (h *Handler) handlePutInventory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.storage.SetInventory(userID, req.Inventory); err != nil {
		h.writeStorageError(w, err)
		return
	}

	h.markInventoryUpdated(userID)

	lines, err := h.storage.GetInventory(userID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.inventoryResponse(userID, lines, "Inventory updated successfully"))
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	strategy := h.defaultStrategy
	if strings.TrimSpace(req.Strategy) != "" {
		parsed, err := allocator.ParseStrategy(req.Strategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid strategy", err.Error())
			return
		}
		strategy = parsed
	}

	if req.Commit && strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "commit requires userId")
		return
	}

	inventory, ok := h.resolveInventory(w, req.UserID, req.Inventory)
	if !ok {
		return
	}

	start := time.Now()
	result, allocErr := h.allocator.Allocate(strategy, inventory, req.TargetValue)
	elapsed := time.Since(start)
	h.metrics.ObserveAllocation(string(strategy), outcomeOf(allocErr), elapsed)

	if allocErr != nil {
		h.writeAllocationError(w, strategy, req.TargetValue, allocErr)
		return
	}

	if req.Commit {
		if err := h.storage.Freeze(req.UserID, result.Items); err != nil {
			if errors.Is(err, storage.ErrInsufficientGems) {
				writeError(w, http.StatusConflict, "Inventory changed", err.Error(), "Refresh the inventory and allocate again")
				return
			}
			writeInternalError(w, err)
			return
		}
		h.markInventoryUpdated(req.UserID)
	}

	resp := newAllocationResponse(result)
	resp.Committed = req.Commit
	resp.CalculationTimeMs = elapsed.Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	inventory, ok := h.resolveInventory(w, req.UserID, req.Inventory)
	if !ok {
		return
	}

	strategies := allocator.Strategies()
	results := make([]previewResult, len(strategies))

	var g errgroup.Group
	for i, strategy := range strategies {
		g.Go(func() error {
			start := time.Now()
			result, err := h.allocator.Allocate(strategy, inventory, req.TargetValue)
			h.metrics.ObserveAllocation(string(strategy), outcomeOf(err), time.Since(start))

			switch {
			case err == nil:
				results[i] = previewResult{allocationResponse: newAllocationResponse(result)}
			case isExpectedFailure(err):
				results[i] = previewResult{allocationResponse: allocationResponse{Strategy: strategy}, Reason: err.Error()}
			default:
				return fmt.Errorf("%s: %w", strategy, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, allocator.ErrInvalidTarget) {
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{TargetValue: req.TargetValue, Results: results})
}

// resolveInventory returns the stored inventory for userID, or the inline
// inventory when no user is given. It writes the error response itself.
func (h *Handler) resolveInventory(w http.ResponseWriter, userID string, inline []allocator.InventoryLine) ([]allocator.InventoryLine, bool) {
	if strings.TrimSpace(userID) == "" {
		if inline == nil {
			writeError(w, http.StatusBadRequest, "Invalid request", "either userId or inventory must be provided")
			return nil, false
		}
		return inline, true
	}

	lines, err := h.storage.GetInventory(userID)
	if err != nil {
		h.writeStorageError(w, err)
		return nil, false
	}
	return lines, true
}

func (h *Handler) writeAllocationError(w http.ResponseWriter, strategy allocator.Strategy, target float64, err error) {
	switch {
	case errors.Is(err, allocator.ErrInvalidTarget), errors.Is(err, allocator.ErrInvalidStrategy):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, allocator.ErrNoInventory):
		writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
			Strategy:   strategy,
			Reason:     err.Error(),
			Suggestion: "Add gems to the inventory or release frozen ones",
		})
	case errors.Is(err, allocator.ErrUnreachable), errors.Is(err, allocator.ErrTargetTooLarge):
		writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
			Strategy:   strategy,
			Reason:     err.Error(),
			Suggestion: fmt.Sprintf("Try another strategy or select gems worth %.2f manually", target),
		})
	default:
		writeInternalError(w, err)
	}
}

func (h *Handler) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidUser), errors.Is(err, storage.ErrInvalidInventory):
		writeError(w, http.StatusBadRequest, "Invalid inventory", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func (h *Handler) inventoryResponse(userID string, lines []allocator.InventoryLine, message string) inventoryResponse {
	out := make([]inventoryLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventoryLine{InventoryLine: line, AvailableQuantity: line.Available()})
	}
	return inventoryResponse{
		UserID:    userID,
		Inventory: out,
		UpdatedAt: h.inventoryUpdatedAt(userID),
		Message:   message,
	}
}

func (h *Handler) inventoryUpdatedAt(userID string) *time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ts, ok := h.updatedAt[userID]
	if !ok {
		return nil
	}
	return &ts
}

func (h *Handler) markInventoryUpdated(userID string) {
	h.mu.Lock()
	h.updatedAt[userID] = h.clock()
	h.mu.Unlock()
}

func isExpectedFailure(err error) bool {
	return errors.Is(err, allocator.ErrNoInventory) ||
		errors.Is(err, allocator.ErrUnreachable) ||
		errors.Is(err, allocator.ErrTargetTooLarge)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case isExpectedFailure(err):
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeError
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type inventoryRequest struct {
	Inventory []allocator.InventoryLine `json:"inventory"`
}

type allocateRequest struct {
	UserID      string                    `json:"userId"`
	Inventory   []allocator.InventoryLine `json:"inventory"`
	TargetValue float64                   `json:"targetValue"`
	Strategy    string                    `json:"strategy"`
	Commit      bool                      `json:"commit"`
}

type previewRequest struct {
	UserID      string                    `json:"userId"`
	Inventory   []allocator.InventoryLine `json:"inventory"`
	TargetValue float64                   `json:"targetValue"`
}

type allocationResponse struct {
	Success           bool               `json:"success"`
	Strategy          allocator.Strategy `json:"strategy"`
	TargetValue       float64            `json:"targetValue,omitempty"`
	Combination       []allocator.Item   `json:"combination,omitempty"`
	TotalValue        float64            `json:"totalValue,omitempty"`
	TotalGems         int                `json:"totalGems,omitempty"`
	Committed         bool               `json:"committed,omitempty"`
	CalculationTimeMs int64              `json:"calculationTimeMs,omitempty"`
}

func newAllocationResponse(a allocator.Allocation) allocationResponse {
	return allocationResponse{
		Success:     true,
		Strategy:    a.Strategy,
		TargetValue: a.Target,
		Combination: a.Items,
		TotalValue:  a.TotalValue,
		TotalGems:   a.TotalGems(),
	}
}

type failureResponse struct {
	Success    bool               `json:"success"`
	Strategy   allocator.Strategy `json:"strategy"`
	Reason     string             `json:"reason"`
	Suggestion string             `json:"suggestion,omitempty"`
}

type previewResult struct {
	allocationResponse
	Reason string `json:"reason,omitempty"`
}

type previewResponse struct {
	TargetValue float64         `json:"targetValue"`
	Results     []previewResult `json:"results"`
}

type inventoryLine struct {
	allocator.InventoryLine
	AvailableQuantity int `json:"availableQuantity"`
}

type inventoryResponse struct {
	UserID    string          `json:"userId"`
	Inventory []inventoryLine `json:"inventory"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type denominationsResponse struct {
	Denominations []catalog.Denomination `json:"denominations"`
	Strategies    []allocator.Strategy   `json:"strategies"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
