package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/challenge"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/document"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/notify"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository/memory"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret-0123456789")

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	code, _ := o.msgs[len(o.msgs)-1].Vars["code"].(string)
	require.NotEmpty(t, code)
	return code
}

type testServer struct {
	*httptest.Server
	outbox *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()
	store.PutUser(model.User{ID: "chef-1", Name: "Chef", Email: "chef@gourmetgo.test", Role: model.RoleChef})
	store.PutUser(model.User{ID: "user-a", Name: "Ana", Email: "ana@example.com", Role: model.RoleUser})

	ob := &outbox{}
	renderer := document.NewRenderer()
	delivery := service.NewDelivery(renderer, ob, time.Second, logger)
	bookings := service.NewBookingService(store.Experiences(), store.Bookings(), store.Users(),
		ledger.New(store, logger), delivery, renderer, service.BookingOptions{}, logger)
	experiences := service.NewExperienceService(store.Experiences(), store.Users(),
		challenge.NewMemoryStore(time.Minute, 10), delivery, time.Minute, logger)

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Logger:      logger,
		JWTSecret:   testSecret,
		Experiences: NewExperienceHandler(experiences, logger),
		Bookings:    NewBookingHandler(bookings, logger),
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, outbox: ob}
}

func token(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", decode[map[string]string](t, resp)["message"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindInvalidRequest, http.StatusBadRequest},
		{apperr.KindExperienceUnavailable, http.StatusBadRequest},
		{apperr.KindInvalidCode, http.StatusBadRequest},
		{apperr.KindInsufficientCapacity, http.StatusBadRequest},
		{apperr.KindDuplicateBooking, http.StatusBadRequest},
		{apperr.KindInvalidState, http.StatusBadRequest},
		{apperr.KindNotDeletable, http.StatusBadRequest},
		{apperr.KindUnauthorized, http.StatusForbidden},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.want, statusOf(tc.kind))
		})
	}
}

func TestRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/experiences", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", decode[model.ErrorResponse](t, resp).Error)

	forged, err := IssueToken([]byte("another-secret-9999"), "user-a", model.RoleUser, time.Hour)
	require.NoError(t, err)
	resp = s.do(t, http.MethodGet, "/experiences", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	expired, err := IssueToken(testSecret, "user-a", model.RoleUser, -time.Minute)
	require.NoError(t, err)
	resp = s.do(t, http.MethodGet, "/experiences", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func createExperience(t *testing.T, s *testServer, capacity int) model.Experience {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/experiences", token(t, "chef-1", model.RoleChef),
		map[string]any{
			"title":    "Fermentation lab",
			"capacity": capacity,
			"date":     "2026-12-05T18:00:00Z",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Experience](t, resp)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	e := createExperience(t, s, 2)
	ana := token(t, "user-a", model.RoleUser)

	booking := map[string]any{
		"experience_id":  e.ID,
		"people":         2,
		"name":           "Ana",
		"email":          "ana@example.com",
		"phone":          "+351 900 000 000",
		"terms_accepted": true,
		"payment_method": "BankTransfer",
	}
	resp := s.do(t, http.MethodPost, "/bookings", ana, booking)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[service.BookingCreated](t, resp)
	require.NotNil(t, created.Booking)
	assert.Len(t, created.Booking.Credentials, 2)
	id := created.Booking.ID

	resp = s.do(t, http.MethodPost, "/bookings", token(t, "user-b", model.RoleUser), booking)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InsufficientCapacity", decode[model.ErrorResponse](t, resp).Error)

	resp = s.do(t, http.MethodGet, "/bookings/"+id, ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[model.BookingDetail](t, resp)
	assert.Equal(t, created.Booking.Code, detail.Code)
	require.NotNil(t, detail.Experience)
	assert.Equal(t, model.ExperienceSoldOut, detail.Experience.Status)

	resp = s.do(t, http.MethodGet, "/bookings/"+id+"/tickets", ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp = s.do(t, http.MethodGet, "/bookings/my", ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.BookingDetail](t, resp), 1)

	resp = s.do(t, http.MethodPut, "/bookings/"+id+"/cancel", ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/bookings/"+id+"/cancel", ana, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidState", decode[model.ErrorResponse](t, resp).Error)

	resp = s.do(t, http.MethodGet, "/experiences/"+e.ID, ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[model.Experience](t, resp).RemainingCapacity)
}

func TestCreateBookingRejectsBadBodies(t *testing.T) {
	s := newTestServer(t)
	e := createExperience(t, s, 2)
	ana := token(t, "user-a", model.RoleUser)

	resp := s.do(t, http.MethodPost, "/bookings", ana, map[string]any{"experience_id": e.ID, "surprise": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/bookings", ana, map[string]any{
		"experience_id":  e.ID,
		"people":         1,
		"name":           "Ana",
		"email":          "ana@example.com",
		"phone":          "1",
		"terms_accepted": false,
		"payment_method": "OnSite",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[model.ErrorResponse](t, resp)
	assert.Equal(t, "InvalidRequest", body.Error)
	assert.Contains(t, body.Message, "terms_accepted")
}

func TestDeletionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	e := createExperience(t, s, 5)
	chef := token(t, "chef-1", model.RoleChef)

	resp := s.do(t, http.MethodPost, "/experiences/"+e.ID+"/request-delete", chef,
		model.DeletionCodeRequest{Email: "someone@example.com"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = s.do(t, http.MethodDelete, "/experiences/"+e.ID, chef,
		model.ConfirmDeletionRequest{Email: "someone@example.com", Code: s.outbox.lastCode(t)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/experiences/"+e.ID+"/request-delete", chef,
		model.DeletionCodeRequest{Email: "chef@gourmetgo.test"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	code := s.outbox.lastCode(t)

	resp = s.do(t, http.MethodDelete, "/experiences/"+e.ID, chef,
		model.ConfirmDeletionRequest{Email: "chef@gourmetgo.test", Code: "9999XXX"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidCode", decode[model.ErrorResponse](t, resp).Error)

	resp = s.do(t, http.MethodDelete, "/experiences/"+e.ID, chef,
		model.ConfirmDeletionRequest{Email: "chef@gourmetgo.test", Code: code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/experiences/"+e.ID, chef, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChefBookingsAccess(t *testing.T) {
	s := newTestServer(t)
	createExperience(t, s, 5)

	resp := s.do(t, http.MethodGet, "/chefs/chef-1/bookings", token(t, "chef-1", model.RoleChef), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/chefs/chef-1/bookings", token(t, "chef-2", model.RoleChef), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/chefs/chef-1/experiences", token(t, "user-a", model.RoleUser), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Experience](t, resp), 1)
}
