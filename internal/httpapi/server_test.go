package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notteru/internal/bot"
	"notteru/internal/httpapi"
)

type fakeUpdateHandler struct {
	updates []bot.Update
	err     error
}

func (h *fakeUpdateHandler) HandleUpdate(ctx context.Context, update bot.Update) error {
	h.updates = append(h.updates, update)
	return h.err
}

type fakeCycleRunner struct {
	runs int
	err  error
}

func (r *fakeCycleRunner) RunCycle(ctx context.Context) error {
	r.runs++
	return r.err
}

const telegramIP = "149.154.167.220"

func newRequest(method, target, body, sourceIP string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if sourceIP != "" {
		req.Header.Set("X-Forwarded-For", sourceIP)
	}
	return req
}

func TestServer_Webhook(t *testing.T) {
	t.Run("telegram source is accepted and dispatched", func(t *testing.T) {
		updates := &fakeUpdateHandler{}
		srv := httpapi.NewServer(updates, &fakeCycleRunner{}, zerolog.Nop())

		body := `{"update_id":9,"message":{"message_id":7,"from":{"id":42},"chat":{"id":100},"text":"/ping"}}`
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", body, telegramIP))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, updates.updates, 1)
		assert.Equal(t, int64(9), updates.updates[0].UpdateID)
		assert.Equal(t, "/ping", updates.updates[0].Message.Text)
	})

	t.Run("second telegram range is accepted", func(t *testing.T) {
		updates := &fakeUpdateHandler{}
		srv := httpapi.NewServer(updates, &fakeCycleRunner{}, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", `{"update_id":1}`, "91.108.6.15"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-telegram source is rejected", func(t *testing.T) {
		updates := &fakeUpdateHandler{}
		srv := httpapi.NewServer(updates, &fakeCycleRunner{}, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", `{"update_id":1}`, "203.0.113.7"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Bad source IP\n", rec.Body.String())
		assert.Empty(t, updates.updates)
	})

	t.Run("peer address is used when no forwarded header", func(t *testing.T) {
		updates := &fakeUpdateHandler{}
		srv := httpapi.NewServer(updates, &fakeCycleRunner{}, zerolog.Nop())

		req := newRequest(http.MethodPost, "/webhook", `{"update_id":1}`, "")
		req.RemoteAddr = telegramIP + ":54321"
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("first forwarded entry wins", func(t *testing.T) {
		srv := httpapi.NewServer(&fakeUpdateHandler{}, &fakeCycleRunner{}, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", `{"update_id":1}`, "203.0.113.7, "+telegramIP))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed payload is a bad request", func(t *testing.T) {
		srv := httpapi.NewServer(&fakeUpdateHandler{}, &fakeCycleRunner{}, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", "{not json", telegramIP))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("handler failure is an internal error", func(t *testing.T) {
		updates := &fakeUpdateHandler{err: errors.New("reply failed")}
		srv := httpapi.NewServer(updates, &fakeCycleRunner{}, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/webhook", `{"update_id":1}`, telegramIP))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_Periodic(t *testing.T) {
	t.Run("runs a cycle from any source", func(t *testing.T) {
		cycles := &fakeCycleRunner{}
		srv := httpapi.NewServer(&fakeUpdateHandler{}, cycles, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/periodic", "", "203.0.113.7"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, cycles.runs)
	})

	t.Run("cycle failure is an internal error", func(t *testing.T) {
		cycles := &fakeCycleRunner{err: errors.New("store down")}
		srv := httpapi.NewServer(&fakeUpdateHandler{}, cycles, zerolog.Nop())

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, newRequest(http.MethodPost, "/periodic", "", ""))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_Healthz(t *testing.T) {
	srv := httpapi.NewServer(&fakeUpdateHandler{}, &fakeCycleRunner{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
