package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bitrust/admin-backend/internal/core/ports"
	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
	"github.com/bitrust/admin-backend/internal/usecases"
)

var (
	_ ports.ProfileService      = (*usecases.ProfileService)(nil)
	_ ports.DepositService      = (*usecases.DepositService)(nil)
	_ ports.VerificationService = (*usecases.VerificationService)(nil)
)

type HTTPHandler struct {
	logger        *slog.Logger
	profiles      ports.ProfileService
	deposits      ports.DepositService
	verifications ports.VerificationService
}

func NewHTTPHandler(
	logger *slog.Logger,
	profiles ports.ProfileService,
	deposits ports.DepositService,
	verifications ports.VerificationService,
) *HTTPHandler {
	return &HTTPHandler{
		logger:        logger,
		profiles:      profiles,
		deposits:      deposits,
		verifications: verifications,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Profiles
	router.HandleFunc("/profiles", h.ListProfiles).Methods("GET")
	router.HandleFunc("/profiles", h.CreateProfile).Methods("POST")
	router.HandleFunc("/profiles/{id}", h.GetProfile).Methods("GET")
	router.HandleFunc("/profiles/{id}", h.UpdateProfile).Methods("PATCH")
	router.HandleFunc("/profiles/{id}", h.DeleteProfile).Methods("DELETE")

	// Deposits
	router.HandleFunc("/deposits", h.ListDeposits).Methods("GET")
	router.HandleFunc("/deposits/{id}", h.GetDeposit).Methods("GET")
	router.HandleFunc("/deposits/{id}/confirm", h.ConfirmDeposit).Methods("POST")
	router.HandleFunc("/deposits/{id}/reject", h.RejectDeposit).Methods("POST")

	// Verifications
	router.HandleFunc("/verifications", h.ListVerifications).Methods("GET")
	router.HandleFunc("/verifications/{id}", h.GetVerification).Methods("GET")
	router.HandleFunc("/verifications/{id}/verify", h.VerifyUser).Methods("POST")

	// Dashboard
	router.HandleFunc("/stats", h.GetStats).Methods("GET")
}

func (h *HTTPHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profiles)
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var profile entities.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.mutationContext(r)
	defer cancel()

	created, err := h.profiles.Create(ctx, profile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch entities.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.mutationContext(r)
	defer cancel()

	profile, err := h.profiles.Update(ctx, mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.mutationContext(r)
	defer cancel()

	if err := h.profiles.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.deposits.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deposits)
}

func (h *HTTPHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	deposit, err := h.deposits.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deposit)
}

func (h *HTTPHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.mutationContext(r)
	defer cancel()

	decision, err := h.deposits.Confirm(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

func (h *HTTPHandler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.mutationContext(r)
	defer cancel()

	decision, err := h.deposits.Reject(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

func (h *HTTPHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	verifications, err := h.verifications.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verifications)
}

func (h *HTTPHandler) GetVerification(w http.ResponseWriter, r *http.Request) {
	verification, err := h.verifications.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verification)
}

func (h *HTTPHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.mutationContext(r)
	defer cancel()

	profile, err := h.verifications.Verify(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileCount, err := h.profiles.Count(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pendingDeposits, err := h.deposits.CountPending(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	verificationCount, err := h.verifications.Count(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{
		"profiles":         profileCount,
		"pending_deposits": pendingDeposits,
		"verifications":    verificationCount,
	})
}

// mutationContext bounds a mutation so a stuck backend cannot hold the
// request forever. The batch either fully committed within the bound or not
// at all.
func (h *HTTPHandler) mutationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), ports.MutationTimeout)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecases.ErrPreconditionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
