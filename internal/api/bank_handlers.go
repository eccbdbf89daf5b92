package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/bloodnet-event-driven/internal/command"
	"github.com/example/bloodnet-event-driven/internal/domain/bank"
	"github.com/example/bloodnet-event-driven/internal/domain/ledger"
)

// Blood bank registry and stock management endpoints

func (h *Handlers) RegisterBank(w http.ResponseWriter, r *http.Request) {
	var cmd command.RegisterBank
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.cmdHandler.RegisterBank(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, bank.ErrInvalidName) || errors.Is(err, bank.ErrInvalidSlug) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, b)
}

func (h *Handlers) ListBanks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListBanks())
}

func (h *Handlers) GetBank(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/banks/")
	b, ok := h.queryHandler.GetBank(id)
	if !ok {
		respondJSONError(w, "Blood bank not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handlers) AddStorage(w http.ResponseWriter, r *http.Request) {
	bankID := pathSegment(r.URL.Path, "/banks/", "/storages")

	var req struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.cmdHandler.AddStorage(r.Context(), command.AddStorage{
		BloodBankID: bankID,
		Name:        req.Name,
		Capacity:    req.Capacity,
	})
	if err != nil {
		switch {
		case errors.Is(err, bank.ErrBankNotFound):
			respondJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, bank.ErrInvalidName), errors.Is(err, bank.ErrDuplicateName):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, st)
}

// GetInventorySummary serves one row per tracked blood type for a bank
func (h *Handlers) GetInventorySummary(w http.ResponseWriter, r *http.Request) {
	bankID := pathSegment(r.URL.Path, "/banks/", "/inventory")
	respondJSON(w, http.StatusOK, h.queryHandler.GetInventorySummary(bankID))
}

func (h *Handlers) ReceiveStock(w http.ResponseWriter, r *http.Request) {
	bankID := pathSegment(r.URL.Path, "/banks/", "/stock")

	var cmd command.ReceiveStock
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.BloodBankID = bankID

	unit, err := h.cmdHandler.ReceiveStock(r.Context(), cmd)
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, unit)
}

func (h *Handlers) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	bankID := pathSegment(r.URL.Path, "/banks/", "/stock/adjust")

	var cmd command.AdjustInventory
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.BloodBankID = bankID

	if err := h.cmdHandler.AdjustInventory(r.Context(), cmd); err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Inventory adjusted"})
}

// MarkExpired runs an expiry sweep for one blood type of a bank
func (h *Handlers) MarkExpired(w http.ResponseWriter, r *http.Request) {
	bankID := pathSegment(r.URL.Path, "/banks/", "/stock/expire")

	var req struct {
		BloodType string `json:"blood_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	expired, err := h.cmdHandler.MarkExpired(r.Context(), command.MarkExpired{
		BloodBankID: bankID,
		BloodType:   req.BloodType,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownBloodType) {
			respondJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}
	if expired == nil {
		expired = []ledger.ExpiredUnit{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"expired": expired})
}

// bankSubRoute reports which bank sub-resource the path addresses
func bankSubRoute(path string) string {
	rest := strings.TrimPrefix(path, "/banks/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return ""
}
