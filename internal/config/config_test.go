package config

import "testing"

func TestLoadIncludesEngineDefaults(t *testing.T) {
	t.Setenv("INDEX_BACKEND", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("PROMPT_PERSONA", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("RETENTION_DAYS", "")

	cfg := Load()
	if cfg.IndexBackend != "qdrant" {
		t.Fatalf("expected default index backend qdrant, got %q", cfg.IndexBackend)
	}
	if cfg.NATSSubject != "feedback.events" {
		t.Fatalf("expected default feedback subject, got %q", cfg.NATSSubject)
	}
	if cfg.PromptPersona != "document_assistant" {
		t.Fatalf("expected default persona document_assistant, got %q", cfg.PromptPersona)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20 rps, got %d", cfg.APIRateLimitRPS)
	}
	if cfg.RetentionDays != 90 {
		t.Fatalf("expected default retention 90 days, got %d", cfg.RetentionDays)
	}
	if cfg.MCPEnabled {
		t.Fatalf("expected MCP disabled by default")
	}
}

func TestLoadParsesEngineOverrides(t *testing.T) {
	t.Setenv("INDEX_BACKEND", "memory")
	t.Setenv("MEMORY_INDEX_PATH", "/data/passages.json")
	t.Setenv("OLLAMA_TIMEOUT_SECONDS", "45")
	t.Setenv("API_RATE_LIMIT_RPS", "5")
	t.Setenv("API_RATE_LIMIT_BURST", "10")
	t.Setenv("MCP_ENABLED", "true")

	cfg := Load()
	if cfg.IndexBackend != "memory" {
		t.Fatalf("expected index backend override, got %q", cfg.IndexBackend)
	}
	if cfg.MemoryIndexPath != "/data/passages.json" {
		t.Fatalf("expected memory index path override, got %q", cfg.MemoryIndexPath)
	}
	if cfg.OllamaTimeoutSeconds != 45 {
		t.Fatalf("expected ollama timeout 45, got %d", cfg.OllamaTimeoutSeconds)
	}
	if cfg.APIRateLimitRPS != 5 || cfg.APIRateLimitBurst != 10 {
		t.Fatalf("expected rate limit overrides, got rps=%d burst=%d", cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	}
	if !cfg.MCPEnabled {
		t.Fatalf("expected MCP enabled")
	}
}

func TestLoadFallsBackOnInvalidInt(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "ninety")

	cfg := Load()
	if cfg.RetentionDays != 90 {
		t.Fatalf("expected fallback retention 90, got %d", cfg.RetentionDays)
	}
}
