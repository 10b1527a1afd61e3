package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logcourier/logcourier/internal/config"
	"github.com/logcourier/logcourier/internal/models"
)

// routerFor builds a PersistorRouter whose auth persistor target is the given
// test server.
func routerFor(t *testing.T, srv *httptest.Server, timeout time.Duration) *PersistorRouter {
	t.Helper()

	r := New(config.PersistorsConfig{Timeout: timeout})
	r.targets[models.TypeAuth] = srv.URL + "/persist"

	return r
}

func testEvent() *models.Event {
	return &models.Event{
		ID:        42,
		Type:      models.TypeAuth,
		Level:     "INFO",
		Message:   "login ok",
		Timestamp: "2024-01-01T00:00:00Z",
		Meta:      map[string]interface{}{"host": "web-1"},
	}
}

func TestRouteUnknownType(t *testing.T) {
	r := New(config.PersistorsConfig{
		Auth: "persistor-auth", Payment: "persistor-payment",
		System: "persistor-system", Application: "persistor-application",
		Port: 6000, Timeout: time.Second,
	})

	event := testEvent()
	event.Type = "mystery"
	delivered, detail := r.Route(context.Background(), event)

	assert.False(t, delivered)
	assert.Equal(t, UnknownTypeDetail, detail)
}

func TestRouteDelivers(t *testing.T) {
	var received models.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/persist", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&received))
		w.Write([]byte("persisted"))
	}))
	defer srv.Close()

	r := routerFor(t, srv, time.Second)
	delivered, detail := r.Route(context.Background(), testEvent())

	assert.True(t, delivered)
	assert.Equal(t, "persisted", detail)
	assert.Equal(t, 42, received.ID)
	assert.Equal(t, models.TypeAuth, received.Type)
	assert.Equal(t, map[string]interface{}{"host": "web-1"}, received.Meta)
}

func TestRouteNon200IsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "persistor on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := routerFor(t, srv, time.Second)
	delivered, detail := r.Route(context.Background(), testEvent())

	assert.False(t, delivered)
	assert.Equal(t, "persistor on fire", detail)
}

func TestRouteTimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	r := routerFor(t, srv, 20*time.Millisecond)
	delivered, detail := r.Route(context.Background(), testEvent())

	assert.False(t, delivered)
	assert.NotEmpty(t, detail)
}

func TestRouteConnectionRefusedIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	srv.Close() // nothing listens anymore

	r := routerFor(t, srv, time.Second)
	delivered, detail := r.Route(context.Background(), testEvent())

	assert.False(t, delivered)
	assert.NotEmpty(t, detail)
}

func TestNewSkipsEmptyHosts(t *testing.T) {
	r := New(config.PersistorsConfig{Auth: "persistor-auth", Port: 6000, Timeout: time.Second})

	assert.Contains(t, r.targets, models.TypeAuth)
	assert.NotContains(t, r.targets, models.TypePayment)
	assert.Equal(t, "http://persistor-auth:6000/persist", r.targets[models.TypeAuth])
}
