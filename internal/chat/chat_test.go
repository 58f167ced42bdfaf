package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "how much on food?", body["message"])
		assert.Equal(t, "u1", body["userId"])
		assert.Equal(t, "2025-05-10T12:00:00Z", body["timestamp"])
		_, _ = w.Write([]byte(`{"response":"You spent 40.00 on food."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, log.Discard())
	c.now = func() time.Time { return time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC) }

	got, err := c.Send(context.Background(), "u1", "  how much on food?  ")
	require.NoError(t, err)
	assert.Equal(t, "You spent 40.00 on food.", got)
}

func TestSend_Validation(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, log.Discard())
	_, err := c.Send(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = c.Send(context.Background(), "", "hi")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("nope")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := New(srv.URL, time.Second, log.Discard()).Send(context.Background(), "u1", "hi")
			assert.ErrorIs(t, err, core.ErrRemoteUnavailable)
		})
	}
}
