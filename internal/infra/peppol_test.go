package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeppolClient_NotConfigured(t *testing.T) {
	res, err := NewPeppolClient("").Transmit(context.Background(), []byte("<xml/>"), "0088:123", "INV-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Peppol endpoint not configured", res.Status)
}

func TestPeppolClient_Success(t *testing.T) {
	var got PeppolPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transmission_id":"tx-42","status":"accepted"}`))
	}))
	defer srv.Close()

	res, err := NewPeppolClient(srv.URL).Transmit(context.Background(), []byte("<xml/>"), "0088:123", "INV-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "tx-42", res.TransmissionID)
	assert.Equal(t, "accepted", res.Status)
	assert.Equal(t, PeppolPayload{Receiver: "0088:123", DocumentID: "INV-1", Payload: "<xml/>"}, got)
}

func TestPeppolClient_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("unknown receiver\n"))
	}))
	defer srv.Close()

	res, err := NewPeppolClient(srv.URL).Transmit(context.Background(), []byte("<xml/>"), "0088:999", "INV-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "unknown receiver", res.Status)
}
