// Package config loads stepwise client and server configuration from the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/bhandras/stepwise/internal/tutorial"
)

// TutorialsEnabled is the build-time feature flag. Release builds may turn
// the feature off with
//
//	-ldflags "-X github.com/bhandras/stepwise/internal/config.TutorialsEnabled=false"
var TutorialsEnabled = "true"

// DefaultStreamPath is the step stream endpoint relative to the server URL.
const DefaultStreamPath = "/api/tutorials/stream/"

// Client holds the tutorial client configuration.
type Client struct {
	// ServerURL is the base URL of the tutorial server.
	ServerURL string
	// Token is the bearer token presented to the server.
	Token string
	// StreamPath is joined onto ServerURL to form the stream endpoint.
	StreamPath string
	// MaxSteps bounds the number of steps per tutorial.
	MaxSteps int
	// WorkspaceFile is the file whose content is sent as currentCode.
	WorkspaceFile string
	// LogLevel is the logger level name.
	LogLevel string
	// LogFile receives log output. Empty discards it.
	LogFile string
	// TutorialsEnabled is the effective feature flag.
	TutorialsEnabled bool
}

// LoadClient loads client configuration from environment variables.
func LoadClient() (*Client, error) {
	serverURL := strings.TrimRight(os.Getenv("STEPWISE_SERVER_URL"), "/")
	if serverURL == "" {
		serverURL = "http://localhost:3005"
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid STEPWISE_SERVER_URL: %w", err)
	}

	maxSteps := tutorial.DefaultMaxSteps
	if s := os.Getenv("STEPWISE_MAX_STEPS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STEPWISE_MAX_STEPS %q (expected a positive integer)", s)
		}
		maxSteps = n
	}

	streamPath := os.Getenv("STEPWISE_STREAM_PATH")
	if streamPath == "" {
		streamPath = DefaultStreamPath
	}
	if !strings.HasPrefix(streamPath, "/") {
		streamPath = "/" + streamPath
	}

	logLevel := os.Getenv("STEPWISE_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	// The environment can only switch the feature off, never on.
	enabled := parseBool(TutorialsEnabled, true)
	if v, ok := os.LookupEnv("STEPWISE_TUTORIALS_ENABLED"); ok && !parseBool(v, true) {
		enabled = false
	}

	return &Client{
		ServerURL:        serverURL,
		Token:            strings.TrimSpace(os.Getenv("STEPWISE_TOKEN")),
		StreamPath:       streamPath,
		MaxSteps:         maxSteps,
		WorkspaceFile:    os.Getenv("STEPWISE_WORKSPACE_FILE"),
		LogLevel:         logLevel,
		LogFile:          os.Getenv("STEPWISE_LOG_FILE"),
		TutorialsEnabled: enabled,
	}, nil
}

// StreamURL returns the absolute step stream endpoint.
func (c *Client) StreamURL() string {
	return c.ServerURL + c.StreamPath
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}
