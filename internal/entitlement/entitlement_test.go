package entitlement

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func tierServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TierPath {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientTier(t *testing.T) {
	srv := tierServer(t, http.StatusOK, `{"tier":"PLUS"}`)
	c := NewClient(srv.URL+"/", "tok")
	defer c.Close()

	info, err := c.Tier(context.Background())
	require.NoError(t, err)
	require.Equal(t, TierPlus, info.Tier)
}

func TestClientTierErrors(t *testing.T) {
	srv := tierServer(t, http.StatusInternalServerError, `{"error":"db down"}`)

	c := NewClient(srv.URL, "wrong")
	defer c.Close()
	_, err := c.Tier(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	c2 := NewClient(srv.URL, "tok")
	defer c2.Close()
	_, err = c2.Tier(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

type fakeLookup struct {
	info  TierInfo
	err   error
	calls int
}

func (f *fakeLookup) Tier(context.Context) (TierInfo, error) {
	f.calls++
	return f.info, f.err
}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		lookup  *fakeLookup
		tier    string
		allowed bool
		calls   int
	}{
		{"plus", true, &fakeLookup{info: TierInfo{Tier: "PLUS"}}, TierPlus, true, 1},
		{"free", true, &fakeLookup{info: TierInfo{Tier: "FREE"}}, TierFree, false, 1},
		{"lookup fails", true, &fakeLookup{err: errors.New("offline")}, TierFree, false, 1},
		{"empty tier", true, &fakeLookup{}, TierFree, false, 1},
		{"disabled", false, &fakeLookup{info: TierInfo{Tier: "PLUS"}}, TierFree, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			access := Gate{Enabled: tc.enabled, Lookup: tc.lookup}.Check(context.Background())
			require.Equal(t, tc.tier, access.Tier)
			require.Equal(t, tc.allowed, access.Allowed())
			require.Equal(t, tc.enabled, access.Enabled)
			require.Equal(t, tc.calls, tc.lookup.calls)
		})
	}
}
