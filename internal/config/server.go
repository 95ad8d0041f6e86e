package config

import (
	"fmt"
	"os"
	"strconv"
)

// Generator names accepted by STEPWISE_GENERATOR.
const (
	GeneratorScripted = "scripted"
	GeneratorOpenAI   = "openai"
)

// Server holds tutorial server configuration.
type Server struct {
	// Addr is the listen address for the HTTP server.
	Addr         string
	DatabasePath string
	MasterSecret string
	Debug        bool
	// AllowedOrigins is passed to the CORS middleware.
	AllowedOrigins []string

	// Generator selects the step generator backend.
	Generator string
	// OpenAIKey and OpenAIModel configure the openai generator.
	OpenAIKey   string
	OpenAIModel string
	// ScriptedSteps is the tutorial length of the scripted generator.
	ScriptedSteps int
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr         *string
	DatabasePath *string
	MasterSecret *string
	Debug        *bool
	Generator    *string
}

// LoadServer loads server configuration from environment variables and
// applies any explicit overrides.
func LoadServer(overrides Overrides) (*Server, error) {
	port := 3005
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./stepwise.db"
	}
	if overrides.DatabasePath != nil {
		dbPath = *overrides.DatabasePath
	}

	masterSecret := os.Getenv("STEPWISE_MASTER_SECRET")
	if overrides.MasterSecret != nil {
		masterSecret = *overrides.MasterSecret
	}
	if masterSecret == "" {
		return nil, fmt.Errorf("STEPWISE_MASTER_SECRET environment variable is required")
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	generator := os.Getenv("STEPWISE_GENERATOR")
	if generator == "" {
		generator = GeneratorScripted
	}
	if overrides.Generator != nil {
		generator = *overrides.Generator
	}

	cfg := &Server{
		Addr:           addr,
		DatabasePath:   dbPath,
		MasterSecret:   masterSecret,
		Debug:          debug,
		AllowedOrigins: []string{"*"},
		Generator:      generator,
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		ScriptedSteps:  5,
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if s := os.Getenv("STEPWISE_SCRIPTED_STEPS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STEPWISE_SCRIPTED_STEPS %q", s)
		}
		cfg.ScriptedSteps = n
	}

	switch cfg.Generator {
	case GeneratorScripted:
	case GeneratorOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the %s generator", GeneratorOpenAI)
		}
	default:
		return nil, fmt.Errorf("invalid STEPWISE_GENERATOR %q (expected %s or %s)",
			cfg.Generator, GeneratorScripted, GeneratorOpenAI)
	}
	return cfg, nil
}
