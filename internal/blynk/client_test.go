package blynk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(serverURL, "test-token")
	c.retryDelay = 0
	return c
}

func TestUpdatePinRetriesUntilSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "7", r.URL.Query().Get("V0"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.updatePin(context.Background(), "V0", "7")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUpdatePinGivesUpAfterThreeAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.updatePin(context.Background(), "V1", "2")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDisabledClientDropsUpdates(t *testing.T) {
	c := NewClient("", "")
	assert.NoError(t, c.PushSlotCounts(context.Background(), 3, 0))
	assert.NoError(t, c.SendServoCommand(context.Background(), "open", 1))
	assert.NoError(t, c.PushLastVoucher(context.Background(), "123456"))
}

func TestServoCommandFormat(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("V2")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.SendServoCommand(context.Background(), "open", 4))
	assert.Equal(t, "open:4", got)
}
