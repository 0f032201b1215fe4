package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"APP_NAME":  "gig-match",
		"APP_ENV":   "test",
		"HTTP_PORT": "8080",
		"DB_HOST":   "localhost",
		"DB_NAME":   "gig",
		"DB_USER":   "gig",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(baseEnv()))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Matching.Store != StorePostgres {
		t.Fatalf("expected postgres store, got %s", cfg.Matching.Store)
	}
	if cfg.Matching.MatchTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.Matching.MatchTTL)
	}
	if cfg.Database.DBPort != "5432" || cfg.Database.DBSSLMode != "disable" {
		t.Fatalf("unexpected db defaults: %+v", cfg.Database)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without REDIS_HOST")
	}
	if cfg.Redis.TTL != 600*time.Second {
		t.Fatalf("unexpected redis ttl %s", cfg.Redis.TTL)
	}
}

func TestFromEnv_MissingRequired(t *testing.T) {
	env := baseEnv()
	delete(env, "APP_NAME")
	delete(env, "DB_HOST")

	_, err := FromEnv(envOf(env))
	if !errors.Is(err, errMissingRequiredEnv) {
		t.Fatalf("expected missing env error, got %v", err)
	}
	if !strings.Contains(err.Error(), "APP_NAME") || !strings.Contains(err.Error(), "DB_HOST") {
		t.Fatalf("error should list every missing key: %v", err)
	}
}

func TestFromEnv_MemoryStoreSkipsDatabase(t *testing.T) {
	env := map[string]string{
		"APP_NAME":    "gig-match",
		"APP_ENV":     "dev",
		"HTTP_PORT":   "8080",
		"MATCH_STORE": "Memory",
		"MATCH_TTL":   "5m",
		"REDIS_HOST":  "cache",
	}
	cfg, err := FromEnv(envOf(env))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Matching.Store != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.Matching.Store)
	}
	if cfg.Matching.MatchTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.Matching.MatchTTL)
	}
	if cfg.Redis.Addr() != "cache:6379" {
		t.Fatalf("unexpected redis addr %s", cfg.Redis.Addr())
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	env := baseEnv()
	env["MATCH_STORE"] = "mongo"
	env["MATCH_TTL"] = "soon"
	env["LOG_JSON"] = "maybe"

	_, err := FromEnv(envOf(env))
	if !errors.Is(err, errInvalidEnv) {
		t.Fatalf("expected invalid env error, got %v", err)
	}
	for _, key := range []string{"MATCH_STORE", "MATCH_TTL", "LOG_JSON"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error should mention %s: %v", key, err)
		}
	}
}
