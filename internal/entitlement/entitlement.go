// Package entitlement decides whether the tutorial feature is visible to the
// current user.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/bhandras/stepwise/pkg/logger"
)

const (
	// TierPlus is the only tier entitled to tutorials.
	TierPlus = "PLUS"
	// TierFree is assumed when the tier cannot be determined.
	TierFree = "FREE"

	// TierPath is the subscription tier endpoint.
	TierPath = "/api/subscription/tier"

	defaultTimeout = 10 * time.Second
)

// ErrUnauthorized is returned when the server rejects the token.
var ErrUnauthorized = errors.New("entitlement: unauthorized")

// TierInfo is the body of a tier lookup.
type TierInfo struct {
	Tier string `json:"tier"`
}

// TierLookup resolves the caller's subscription tier.
type TierLookup interface {
	Tier(ctx context.Context) (TierInfo, error)
}

// Client looks tiers up over HTTP.
type Client struct {
	rc *resty.Client
}

// NewClient returns a client for the server at baseURL, authenticating with
// token.
func NewClient(baseURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{rc: rc}
}

// Tier implements TierLookup.
func (c *Client) Tier(ctx context.Context) (TierInfo, error) {
	var info TierInfo
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&info).
		Get(TierPath)
	if err != nil {
		return TierInfo{}, fmt.Errorf("entitlement: get tier: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return TierInfo{}, ErrUnauthorized
	}
	if resp.IsError() {
		return TierInfo{}, fmt.Errorf("entitlement: get tier: status %d: %s",
			resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return info, nil
}

// Close releases the client's resources.
func (c *Client) Close() error {
	return c.rc.Close()
}

// Access is the outcome of the mount-time check.
type Access struct {
	// Enabled is the build/config feature flag.
	Enabled bool
	// Tier is the resolved subscription tier.
	Tier string
}

// Allowed reports whether the session UI may be shown.
func (a Access) Allowed() bool {
	return a.Enabled && a.Tier == TierPlus
}

// Gate combines the feature flag with the tier lookup.
type Gate struct {
	Enabled bool
	Lookup  TierLookup
}

// Check resolves access once. With the feature disabled the tier is not
// looked up. Lookup failures degrade to TierFree and are only logged.
func (g Gate) Check(ctx context.Context) Access {
	access := Access{Enabled: g.Enabled, Tier: TierFree}
	if !g.Enabled || g.Lookup == nil {
		return access
	}

	info, err := g.Lookup.Tier(ctx)
	if err != nil {
		logger.Warnf("entitlement: tier lookup failed, assuming %s: %v", TierFree, err)
		return access
	}
	if tier := strings.TrimSpace(info.Tier); tier != "" {
		access.Tier = tier
	}
	logger.Debugf("entitlement: tier=%s", access.Tier)
	return access
}
