package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadClientDefaults(t *testing.T) {
	for _, k := range []string{
		"STEPWISE_SERVER_URL", "STEPWISE_TOKEN", "STEPWISE_MAX_STEPS",
		"STEPWISE_STREAM_PATH", "STEPWISE_WORKSPACE_FILE", "STEPWISE_LOG_LEVEL",
		"STEPWISE_LOG_FILE",
	} {
		t.Setenv(k, "")
	}

	cfg, err := LoadClient()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3005", cfg.ServerURL)
	require.Equal(t, 10, cfg.MaxSteps)
	require.Equal(t, "http://localhost:3005/api/tutorials/stream/", cfg.StreamURL())
	require.Equal(t, "info", cfg.LogLevel)
	require.True(t, cfg.TutorialsEnabled)
}

func TestLoadClientFromEnv(t *testing.T) {
	t.Setenv("STEPWISE_SERVER_URL", "https://tutor.example.com/")
	t.Setenv("STEPWISE_TOKEN", " tok ")
	t.Setenv("STEPWISE_MAX_STEPS", "4")
	t.Setenv("STEPWISE_STREAM_PATH", "stream")
	t.Setenv("STEPWISE_WORKSPACE_FILE", "main.go")

	cfg, err := LoadClient()
	require.NoError(t, err)
	require.Equal(t, "tok", cfg.Token)
	require.Equal(t, 4, cfg.MaxSteps)
	require.Equal(t, "https://tutor.example.com/stream", cfg.StreamURL())
	require.Equal(t, "main.go", cfg.WorkspaceFile)
}

func TestLoadClientRejectsBadMaxSteps(t *testing.T) {
	t.Setenv("STEPWISE_MAX_STEPS", "0")
	_, err := LoadClient()
	require.Error(t, err)
}

func TestTutorialsFlag(t *testing.T) {
	orig := TutorialsEnabled
	t.Cleanup(func() { TutorialsEnabled = orig })

	t.Setenv("STEPWISE_TUTORIALS_ENABLED", "false")
	cfg, err := LoadClient()
	require.NoError(t, err)
	require.False(t, cfg.TutorialsEnabled)

	// The environment cannot enable a feature the build disabled.
	TutorialsEnabled = "false"
	t.Setenv("STEPWISE_TUTORIALS_ENABLED", "true")
	cfg, err = LoadClient()
	require.NoError(t, err)
	require.False(t, cfg.TutorialsEnabled)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("STEPWISE_MASTER_SECRET", "secret")
	t.Setenv("STEPWISE_GENERATOR", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("STEPWISE_SCRIPTED_STEPS", "")

	cfg, err := LoadServer(Overrides{})
	require.NoError(t, err)
	require.Equal(t, ":4000", cfg.Addr)
	require.Equal(t, GeneratorScripted, cfg.Generator)
	require.Equal(t, 5, cfg.ScriptedSteps)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)

	addr := "127.0.0.1:9999"
	debug := true
	cfg, err = LoadServer(Overrides{Addr: &addr, Debug: &debug})
	require.NoError(t, err)
	require.Equal(t, addr, cfg.Addr)
	require.True(t, cfg.Debug)
}

func TestLoadServerErrors(t *testing.T) {
	t.Setenv("STEPWISE_MASTER_SECRET", "")
	_, err := LoadServer(Overrides{})
	require.ErrorContains(t, err, "STEPWISE_MASTER_SECRET")

	t.Setenv("STEPWISE_MASTER_SECRET", "secret")
	t.Setenv("STEPWISE_GENERATOR", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	_, err = LoadServer(Overrides{})
	require.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("STEPWISE_GENERATOR", "magic")
	_, err = LoadServer(Overrides{})
	require.ErrorContains(t, err, "STEPWISE_GENERATOR")
}
