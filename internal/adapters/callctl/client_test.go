package callctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaverel/callbridge/internal/ports"
)

func TestHoldCallSendsRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody holdBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.HoldCall(context.Background(), ports.HoldRequest{
		CallID:         "call-1",
		Message:        "One moment",
		PauseRecording: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "POST /calls/call-1/hold", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "One moment", gotBody.Message)
	assert.True(t, gotBody.PauseRecording)
}

func TestSwitchSourceCarriesHumanName(t *testing.T) {
	var gotBody switchSourceBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.SwitchSource(context.Background(), ports.SwitchSourceRequest{
		CallID:    "call-1",
		Target:    "human",
		HumanName: "Operator",
	})
	require.NoError(t, err)

	assert.Equal(t, "human", gotBody.Target)
	assert.Equal(t, "Operator", gotBody.HumanName)
}

func TestErrorResponseSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "call already on hold"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.HoldCall(context.Background(), ports.HoldRequest{CallID: "call-1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "call already on hold", apiErr.Message)
}

func TestErrorResponseWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.UnholdCall(context.Background(), "call-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Error(), "500")
}

func TestGetCallStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/calls/current/stats", r.URL.Path)
		json.NewEncoder(w).Encode(ports.CallStats{
			CallID:            "call-9",
			ActiveMediaSource: "agent",
			OnHold:            true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	stats, err := client.GetCallStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "call-9", stats.CallID)
	assert.Equal(t, "agent", stats.ActiveMediaSource)
	assert.True(t, stats.OnHold)
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.StartAgent(context.Background(), "call-1")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPlayToAllUsesPut(t *testing.T) {
	var gotMethod string
	var gotBody playToAllBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	require.NoError(t, client.UpdatePlayToAll(context.Background(), "call-1", true))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.True(t, gotBody.PlayToAll)
}
