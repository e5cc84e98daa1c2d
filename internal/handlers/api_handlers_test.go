package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
	"github.com/bitrust/admin-backend/internal/usecases"
)

type identityStub struct{}

func (identityStub) DeleteIdentity(context.Context, string) error { return nil }

func newTestRouter(t *testing.T) (*mux.Router, *store.MemoryGateway) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := store.NewMemoryGateway()
	coordinator := usecases.NewCoordinator(logger, gateway)
	feed := NewFeed(logger)

	handler := NewHTTPHandler(
		logger,
		usecases.NewProfileService(logger, gateway, coordinator, identityStub{}, feed),
		usecases.NewDepositService(logger, gateway, coordinator, feed),
		usecases.NewVerificationService(logger, gateway, coordinator, feed),
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, gateway
}

func seedProfile(gw *store.MemoryGateway, id string) {
	profile := entities.Profile{
		ID:               id,
		Name:             "Alice Example",
		Email:            id + "@example.com",
		Currency:         "USD",
		TotalBalance:     decimal.RequireFromString("100.00"),
		AvailableBalance: decimal.RequireFromString("100.00"),
		AccountStatus:    "Active",
		KYCStatus:        entities.KYCUnverified,
		ReferralList:     []string{},
	}
	gw.Seed(store.CollectionProfiles, store.Record{ID: id, Fields: profile.Fields()})
}

func seedDeposit(gw *store.MemoryGateway, id, userID string, status entities.DepositStatus) {
	deposit := entities.Deposit{
		ID:        id,
		UserID:    userID,
		Method:    "Bitcoin",
		Amount:    decimal.RequireFromString("25.00"),
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	gw.Seed(store.CollectionDeposits, store.Record{ID: id, Fields: deposit.Fields()})
}

func doRequest(router *mux.Router, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProfileEndpoints(t *testing.T) {
	router, gateway := newTestRouter(t)
	seedProfile(gateway, "user-1")

	rec := doRequest(router, http.MethodGet, "/profiles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var profiles []entities.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profiles))
	require.Len(t, profiles, 1)
	require.Equal(t, "Alice Example", profiles[0].Name)

	rec = doRequest(router, http.MethodGet, "/profiles/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var errBody map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	require.Contains(t, errBody["error"], "not found")

	rec = doRequest(router, http.MethodPatch, "/profiles/user-1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated entities.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Renamed", updated.Name)

	rec = doRequest(router, http.MethodPatch, "/profiles/user-1", `{"available_balance":"500.00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code,
		"available balance above total is refused")

	rec = doRequest(router, http.MethodPost, "/profiles", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/profiles", `{"name":"Bob","email":"bob@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestDepositDecisionEndpoints(t *testing.T) {
	router, gateway := newTestRouter(t)
	seedProfile(gateway, "user-1")
	seedDeposit(gateway, "dep-1", "user-1", entities.DepositPending)

	rec := doRequest(router, http.MethodPost, "/deposits/dep-1/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var decision entities.DepositDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	require.Equal(t, entities.DepositCompleted, decision.Deposit.Status)
	require.True(t, decision.Profile.TotalBalance.Equal(decimal.RequireFromString("125.00")))

	// Confirming the same deposit again must not credit twice.
	rec = doRequest(router, http.MethodPost, "/deposits/dep-1/confirm", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(router, http.MethodPost, "/deposits/missing/reject", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProfileEndpoint(t *testing.T) {
	router, gateway := newTestRouter(t)
	seedProfile(gateway, "user-1")
	seedDeposit(gateway, "dep-1", "user-1", entities.DepositPending)

	rec := doRequest(router, http.MethodDelete, "/profiles/user-1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code,
		"deletion is blocked while a deposit is pending")

	rec = doRequest(router, http.MethodPost, "/deposits/dep-1/reject", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/profiles/user-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(router, http.MethodGet, "/profiles/user-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router, gateway := newTestRouter(t)
	seedProfile(gateway, "user-1")
	seedProfile(gateway, "user-2")
	seedDeposit(gateway, "dep-1", "user-1", entities.DepositPending)
	seedDeposit(gateway, "dep-2", "user-1", entities.DepositCompleted)

	rec := doRequest(router, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 2, stats["profiles"])
	require.Equal(t, 1, stats["pending_deposits"])
	require.Equal(t, 0, stats["verifications"])
}
