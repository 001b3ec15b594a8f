package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/session"
)

type client struct {
	t       *testing.T
	handler http.Handler
	claims  *auth.Claims
}

func newClient(t *testing.T) *client {
	t.Helper()
	ids := 0
	store := session.NewInMemoryStore(domain.WithIDGenerator(func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := NewHandler(domain.NewService(store, nil, domain.WithLogger(logger)), logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &client{t: t, handler: mux, claims: claimsFor("user-1", auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)}
}

func claimsFor(subject string, scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &auth.Claims{Subject: subject, TenantID: "tenant-1", Scopes: set, ExpiresAt: time.Now().Add(time.Hour)}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), c.claims))
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func draft(typ, duration, calories string) DraftRequest {
	return DraftRequest{Type: &typ, Duration: &duration, Calories: &calories}
}

func labels(view LedgerView) []string {
	out := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		out = append(out, item.Label)
	}
	return out
}

func TestEmptyLedger(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/v1/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[LedgerView](t, rec)
	require.Empty(t, view.Items)
	require.Equal(t, "creating", view.Mode)
	require.Equal(t, "Add Activity", view.SubmitLabel)
	require.Equal(t, domain.PlaceholderType, view.Placeholders.Type)
	require.Equal(t, domain.PlaceholderDuration, view.Placeholders.Duration)
	require.Equal(t, domain.PlaceholderCalories, view.Placeholders.Calories)
}

func TestAddActivityWithDefaultCalories(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[SubmitResponse](t, rec)
	require.Equal(t, "Running - 30 min - 300 cal", resp.Activity.Label)
	require.Equal(t, []string{"Running - 30 min - 300 cal"}, labels(resp.Ledger))
	require.Equal(t, DraftView{}, resp.Ledger.Draft)
}

func TestAddActivityWithProvidedCaloriesAfterDraftEdits(t *testing.T) {
	c := newClient(t)

	typ, duration, calories := "  Cycling ", "45", "500"
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/v1/ledger/draft", DraftRequest{Type: &typ}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, "/v1/ledger/draft", DraftRequest{Duration: &duration}).Code)
	view := decode[LedgerView](t, c.do(http.MethodPatch, "/v1/ledger/draft", DraftRequest{Calories: &calories}))
	require.Equal(t, DraftView{Type: typ, Duration: "45", Calories: "500"}, view.Draft)

	rec := c.do(http.MethodPost, "/v1/ledger/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Cycling - 45 min - 500 cal", decode[SubmitResponse](t, rec).Activity.Label)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		req    DraftRequest
		code   string
		field  string
		detail string
	}{
		{"empty type", draft("   ", "30", ""), "empty_type", "type", "Please enter an activity type"},
		{"negative duration", draft("Running", "-5", ""), "invalid_duration", "duration", "Duration must be a positive integer"},
		{"decimal duration", draft("Running", "1.5", ""), "invalid_duration", "duration", "Duration must be a positive integer"},
		{"zero calories", draft("Running", "30", "0"), "invalid_calories", "calories", "Calories must be a positive integer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t)
			rec := c.do(http.MethodPost, "/v1/ledger/submit", tc.req)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			resp := decode[ValidationErrorResponse](t, rec)
			require.Equal(t, tc.code, resp.Code)
			require.Equal(t, tc.field, resp.Field)
			require.Equal(t, "Error", resp.Title)
			require.Equal(t, tc.detail, resp.Detail)
			require.Empty(t, resp.Ledger.Items)
			require.Equal(t, DraftView{Type: *tc.req.Type, Duration: *tc.req.Duration, Calories: *tc.req.Calories}, resp.Ledger.Draft)
		})
	}
}

func TestEditAndUpdateKeepsPosition(t *testing.T) {
	c := newClient(t)
	c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))
	c.do(http.MethodPost, "/v1/ledger/submit", draft("Yoga", "60", "200"))

	view := decode[LedgerView](t, c.do(http.MethodPost, "/v1/ledger/activities/id-1/edit", nil))
	require.Equal(t, "editing", view.Mode)
	require.Equal(t, "Update Activity", view.SubmitLabel)
	require.Equal(t, "id-1", view.EditingID)
	require.Equal(t, DraftView{Type: "Running", Duration: "30", Calories: "300"}, view.Draft)

	rec := c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "35", "300"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SubmitResponse](t, rec)
	require.Equal(t, "id-1", resp.Activity.ID)
	require.Equal(t, []string{"Running - 35 min - 300 cal", "Yoga - 60 min - 200 cal"}, labels(resp.Ledger))
	require.Equal(t, "creating", resp.Ledger.Mode)
}

func TestDeleteEditedActivityResetsDraft(t *testing.T) {
	c := newClient(t)
	c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))
	c.do(http.MethodPost, "/v1/ledger/activities/id-1/edit", nil)

	rec := c.do(http.MethodDelete, "/v1/ledger/activities/id-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[LedgerView](t, rec)
	require.Empty(t, view.Items)
	require.Equal(t, "creating", view.Mode)
	require.Empty(t, view.EditingID)
	require.Equal(t, DraftView{}, view.Draft)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	c := newClient(t)
	c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))
	typ := "Walk"
	c.do(http.MethodPatch, "/v1/ledger/draft", DraftRequest{Type: &typ})

	for _, rec := range []*httptest.ResponseRecorder{
		c.do(http.MethodDelete, "/v1/ledger/activities/missing", nil),
		c.do(http.MethodPost, "/v1/ledger/activities/missing/edit", nil),
	} {
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[LedgerView](t, rec)
		require.Equal(t, []string{"Running - 30 min - 300 cal"}, labels(view))
		require.Equal(t, "Walk", view.Draft.Type)
		require.Equal(t, "creating", view.Mode)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	c := newClient(t)
	c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))

	c.claims = claimsFor("user-2", auth.ScopeActivitiesRead)
	view := decode[LedgerView](t, c.do(http.MethodGet, "/v1/ledger", nil))
	require.Empty(t, view.Items)
}

func TestAuthorization(t *testing.T) {
	c := newClient(t)

	c.claims = nil
	require.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/v1/ledger", nil).Code)

	c.claims = claimsFor("user-1", auth.ScopeActivitiesRead)
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/ledger", nil).Code)
	rec := c.do(http.MethodPost, "/v1/ledger/submit", draft("Running", "30", ""))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", decode[map[string]string](t, rec)["type"])
}

func TestRequestErrors(t *testing.T) {
	c := newClient(t)

	require.Equal(t, http.StatusMethodNotAllowed, c.do(http.MethodDelete, "/v1/ledger", nil).Code)
	require.Equal(t, http.StatusMethodNotAllowed, c.do(http.MethodGet, "/v1/ledger/submit", nil).Code)
	require.Equal(t, http.StatusMethodNotAllowed, c.do(http.MethodGet, "/v1/ledger/activities/id-1", nil).Code)
	require.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/v1/ledger/activities/id-1/archive", nil).Code)
	require.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/v1/ledger/activities/", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/submit", bytes.NewBufferString("{"))
	req = req.WithContext(auth.WithClaims(req.Context(), c.claims))
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	c := newClient(t)
	c.claims = nil
	rec := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
