package agentstep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientSinceParsesTurnsAndSendsBearerToken(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("since")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"turns":[{"ordinal":1,"provider":"ollama"},{"ordinal":2,"provider":"ollama"}]}`))
	}))
	defer srv.Close()

	client := newGatewayClient(srv.URL)
	turns, err := client.since(context.Background(), "task-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 2, turns[1].Ordinal)
	assert.Equal(t, "Bearer task:task-1", gotAuth)
	assert.Equal(t, "0", gotQuery)
}

func TestGatewayClientSinceReturnsErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newGatewayClient(srv.URL)
	_, err := client.since(context.Background(), "task-1", 0)
	assert.Error(t, err)
}

func TestGatewayClientSinceURLEncodesOrdinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("since"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"turns":[]}`))
	}))
	defer srv.Close()

	client := newGatewayClient(srv.URL)
	turns, err := client.since(context.Background(), "task-1", 42)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
