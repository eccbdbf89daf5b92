package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/bloodnet-event-driven/internal/api/middleware"
	"github.com/example/bloodnet-event-driven/internal/command"
	"github.com/example/bloodnet-event-driven/internal/domain/delivery"
	"github.com/example/bloodnet-event-driven/internal/domain/ledger"
	"github.com/example/bloodnet-event-driven/internal/domain/request"
	"github.com/example/bloodnet-event-driven/internal/domain/rewards"
	"github.com/example/bloodnet-event-driven/internal/domain/voucher"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// validationResponse is the 400 body for rejected request drafts
type validationResponse struct {
	Errors   []request.ValidationError `json:"errors"`
	Warnings []request.Advisory        `json:"warnings,omitempty"`
}

// Request Handlers

func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var cmd command.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.HospitalID = callerOrg(r)

	req, result, err := h.cmdHandler.SubmitRequest(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, command.ErrValidationFailed) {
			respondJSON(w, http.StatusBadRequest, validationResponse{
				Errors:   result.Errors,
				Warnings: result.Warnings,
			})
			return
		}
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"request":  req,
		"warnings": result.Warnings,
	})
}

func (h *Handlers) GetRequests(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())
	if claims != nil && claims.Role == "hospital" {
		respondJSON(w, http.StatusOK, h.queryHandler.ListRequestsByHospital(callerOrg(r)))
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListAllRequests())
}

func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/requests/")
	req, ok := h.queryHandler.GetRequest(id)
	if !ok {
		respondJSONError(w, "Request not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) AdvanceRequest(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/requests/", "/advance")

	var req struct {
		TargetStatus string `json:"target_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.cmdHandler.AdvanceRequest(r.Context(), command.AdvanceRequest{
		RequestID:    id,
		TargetStatus: req.TargetStatus,
	})
	if err != nil {
		if errors.Is(err, command.ErrValidationFailed) {
			respondJSON(w, http.StatusConflict, validationResponse{
				Errors:   result.Errors,
				Warnings: result.Warnings,
			})
			return
		}
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Request advanced"})
}

func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/requests/", "/cancel")

	var req struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	err := h.cmdHandler.CancelRequest(r.Context(), command.CancelRequest{
		RequestID: id,
		Reason:    req.Reason,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Request cancelled"})
}

// Delivery Handlers

func (h *Handlers) ScheduleDelivery(w http.ResponseWriter, r *http.Request) {
	var cmd command.ScheduleDelivery
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.cmdHandler.ScheduleDelivery(r.Context(), cmd)
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, d)
}

func (h *Handlers) GetDelivery(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/deliveries/")
	d, ok := h.queryHandler.GetDelivery(id)
	if !ok {
		respondJSONError(w, "Delivery not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handlers) AdvanceDelivery(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/deliveries/", "/advance")

	var req struct {
		TargetStatus string `json:"target_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.cmdHandler.AdvanceDelivery(r.Context(), command.AdvanceDelivery{
		DeliveryID:   id,
		TargetStatus: req.TargetStatus,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Delivery advanced"})
}

// Voucher Handlers

func (h *Handlers) GetVouchers(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())
	if claims != nil && claims.Role == "donor" {
		respondJSON(w, http.StatusOK, h.queryHandler.ListVouchersByDonor(claims.UserID))
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListOpenVouchers())
}

func (h *Handlers) GetVoucher(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/vouchers/")
	v, ok := h.queryHandler.GetVoucher(id)
	if !ok {
		respondJSONError(w, "Voucher not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handlers) AcceptVoucher(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/vouchers/", "/accept")

	var req struct {
		StorageID string `json:"storage_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := h.cmdHandler.AcceptVoucher(r.Context(), command.AcceptVoucher{
		VoucherID:   id,
		BloodBankID: callerOrg(r),
		StorageID:   req.StorageID,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, v)
}

func (h *Handlers) CompleteVoucher(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/vouchers/", "/complete")

	err := h.cmdHandler.CompleteVoucher(r.Context(), command.CompleteVoucher{
		VoucherID:   id,
		BloodBankID: callerOrg(r),
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Voucher completed"})
}

func (h *Handlers) RejectVoucher(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/vouchers/", "/reject")

	var req struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	err := h.cmdHandler.RejectVoucher(r.Context(), command.RejectVoucher{
		VoucherID: id,
		Reason:    req.Reason,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Voucher rejected"})
}

// Donation & Rewards Handlers

func (h *Handlers) RecordDonation(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordDonation
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.BloodBankID == "" {
		cmd.BloodBankID = callerOrg(r)
	}

	unit, acct, err := h.cmdHandler.RecordDonation(r.Context(), cmd)
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"unit":    unit,
		"account": acct,
	})
}

func (h *Handlers) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BloodType string `json:"blood_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, acct, err := h.cmdHandler.RedeemPoints(r.Context(), command.RedeemPoints{
		DonorID:   middleware.GetUserID(r.Context()),
		BloodType: req.BloodType,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"voucher": v,
		"account": acct,
	})
}

func (h *Handlers) GetRewardBalance(w http.ResponseWriter, r *http.Request) {
	balance, _ := h.queryHandler.GetRewardBalance(middleware.GetUserID(r.Context()))
	respondJSON(w, http.StatusOK, balance)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// pathSegment extracts the id between a prefix and an action suffix
func pathSegment(path, prefix, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
}

// callerOrg returns the caller's organization (hospital or blood bank),
// falling back to the user ID for callers without one
func callerOrg(r *http.Request) string {
	if orgID := middleware.GetOrgID(r.Context()); orgID != "" {
		return orgID
	}
	return middleware.GetUserID(r.Context())
}

// statusForError maps domain errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, request.ErrRequestNotFound),
		errors.Is(err, delivery.ErrDeliveryNotFound),
		errors.Is(err, voucher.ErrVoucherNotFound):
		return http.StatusNotFound
	case errors.Is(err, command.ErrUnknownTarget),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, rewards.ErrInvalidPoints):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrUnknownBloodType),
		errors.Is(err, rewards.ErrInsufficientPoints),
		errors.Is(err, voucher.ErrAlreadyBound),
		errors.Is(err, voucher.ErrWrongBank),
		errors.Is(err, voucher.ErrInvalidStatus),
		errors.Is(err, voucher.ErrVoucherCompleted),
		errors.Is(err, voucher.ErrVoucherCancelled),
		errors.Is(err, request.ErrInvalidStatus),
		errors.Is(err, request.ErrRequestFulfilled),
		errors.Is(err, request.ErrRequestCancelled),
		errors.Is(err, request.ErrNotProcessing),
		errors.Is(err, delivery.ErrInvalidStatus),
		errors.Is(err, delivery.ErrDeliveryComplete),
		errors.Is(err, delivery.ErrNotInTransit),
		errors.Is(err, command.ErrRequestNotReady),
		errors.Is(err, command.ErrDeliveryExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
