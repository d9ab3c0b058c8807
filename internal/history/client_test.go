package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	entries := []Entry{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/s1/transcript", r.URL.Path)
		json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Fetch(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestClient_FetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background(), "missing")
	assert.Error(t, err)
}

func TestClient_CancelAndReplace(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sessions/slow/transcript" {
			select {
			case <-r.Context().Done():
				return
			case <-release:
			}
		}
		json.NewEncoder(w).Encode([]Entry{{Role: "user", Content: "ok"}})
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL)

	slowErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "slow")
		slowErr <- err
	}()

	// Give the slow fetch time to go in flight, then replace it.
	time.Sleep(100 * time.Millisecond)
	got, err := c.Fetch(context.Background(), "fast")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	select {
	case err := <-slowErr:
		require.Error(t, err, "replaced fetch must not run to completion")
	case <-time.After(2 * time.Second):
		t.Fatal("replaced fetch never returned")
	}
}

func TestClient_CancelPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "s1")
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	c.CancelPending()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled fetch never returned")
	}
}
