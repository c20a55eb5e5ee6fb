package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/functions"
	testingutil "github.com/signalist/signalist/internal/testing"
)

const signingKey = "functions-key"

func signedRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/functions", strings.NewReader(body))
	req.Header.Set(functions.SignatureHeader, functions.NewRequestSigner(signingKey).Sign([]byte(body), time.Now()))
	return req
}

func setup(t *testing.T) (http.Handler, *events.Manager, *int32) {
	t.Helper()
	provider, _ := testingutil.NewTestProvider(t)
	log := zerolog.Nop()

	var calls int32
	registry := functions.NewRegistry()
	registry.Register(&functions.Function{
		ID:     "daily-news-summary",
		Events: []events.EventType{events.SendDailyNews},
		Cron:   "0 0 12 * * *",
		Run: func(ctx context.Context, e *events.Event) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "done", nil
		},
	})

	manager := events.NewManager(events.NewBus(log), log)
	store := functions.NewRunStore(provider, log)
	rt := functions.NewRuntime(registry, store, manager, nil, log)
	require.NoError(t, rt.Start())
	t.Cleanup(rt.Stop)

	r := chi.NewRouter()
	NewHandler(rt, store, functions.NewRequestSigner(signingKey), log).RegisterRoutes(r)
	return r, manager, &calls
}

func TestSendThenList(t *testing.T) {
	h, manager, calls := setup(t)

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signedRequest(method, `{"name":"app/send.daily.news","data":{}}`))
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp["ids"], 1)
	}
	manager.Bus().Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(http.MethodGet, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Functions []functions.Info      `json:"functions"`
		Runs      []functions.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Functions, 1)
	assert.Equal(t, "daily-news-summary", body.Functions[0].ID)
	assert.Equal(t, []string{"app/send.daily.news"}, body.Functions[0].Events)
	assert.Len(t, body.Runs, 2)
}

func TestSend_Rejects(t *testing.T) {
	h, _, calls := setup(t)

	for _, body := range []string{`not json`, `{"name":"app/unknown"}`, `{"name":"app/user.created"}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signedRequest(http.MethodPost, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestUnsignedRequestsRejected(t *testing.T) {
	h, manager, calls := setup(t)
	body := `{"name":"app/send.daily.news","data":{"email":"someone@example.com"}}`

	other := httptest.NewRequest(http.MethodPost, "/functions", strings.NewReader(body))
	other.Header.Set(functions.SignatureHeader, functions.NewRequestSigner("wrong-key").Sign([]byte(body), time.Now()))

	tampered := signedRequest(http.MethodPost, `{"name":"app/send.daily.news","data":{}}`)
	tampered.Body = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)).Body

	garbage := signedRequest(http.MethodPost, body)
	garbage.Header.Set(functions.SignatureHeader, "%%%")

	for name, req := range map[string]*http.Request{
		"no signature":   httptest.NewRequest(http.MethodPost, "/functions", strings.NewReader(body)),
		"put unsigned":   httptest.NewRequest(http.MethodPut, "/functions", strings.NewReader(body)),
		"list unsigned":  httptest.NewRequest(http.MethodGet, "/functions", nil),
		"wrong key":      other,
		"body swapped":   tampered,
		"garbage header": garbage,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}

	manager.Bus().Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestRequestsRejectedWithoutKey(t *testing.T) {
	provider, _ := testingutil.NewTestProvider(t)
	log := zerolog.Nop()
	rt := functions.NewRuntime(functions.NewRegistry(), nil, events.NewManager(events.NewBus(log), log), nil, log)

	r := chi.NewRouter()
	NewHandler(rt, functions.NewRunStore(provider, log), functions.NewRequestSigner(""), log).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/functions", strings.NewReader(`{}`))
	req.Header.Set(functions.SignatureHeader, functions.NewRequestSigner("").Sign([]byte(`{}`), time.Now()))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
