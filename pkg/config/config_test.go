package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STATICPUSH_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Environment != "local" {
		t.Errorf("Expected default environment 'local', got %q", config.Environment)
	}
	if !config.JS.Minify.Compress || !config.JS.Minify.Mangle {
		t.Error("Expected compress and mangle to default to true")
	}
	if config.CSS.Clean.Enabled {
		t.Error("Expected css compaction to be disabled by default")
	}
	if config.Workers() != runtime.NumCPU() {
		t.Errorf("Expected Workers() to default to NumCPU, got %d", config.Workers())
	}
	if len(config.Whitelist()) != len(DefaultFileTypesWhitelist) {
		t.Errorf("Expected default whitelist, got %v", config.Whitelist())
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("STATICPUSH_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "staticpush.yaml")
	content := `
workspace: /src
repos: [catalogue, basket]
concurrency: 3
css:
  clean:
    enabled: true
environments:
  production:
    store:
      bucket: assets-prod
      region: eu-west-1
      cdn: https://cdn.example.com
  staging:
    store:
      driver: minio
      bucket: assets-staging
      endpoint: minio.internal:9000
      cache_max_age: 60
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if config.Workers() != 3 {
		t.Errorf("Expected 3 workers, got %d", config.Workers())
	}
	if len(config.Repos) != 2 || config.Repos[0] != "catalogue" {
		t.Errorf("Unexpected repos: %v", config.Repos)
	}
	if !config.CSS.Clean.Enabled {
		t.Error("Expected css compaction to be enabled")
	}
	if got := config.RepoPath("basket"); got != filepath.Join("/src", "basket") {
		t.Errorf("RepoPath() = %q", got)
	}

	prod, ok := config.Store("production")
	if !ok {
		t.Fatal("Expected production store to be configured")
	}
	if prod.Driver != "s3" || prod.CacheMaxAge != DefaultCacheMaxAge {
		t.Errorf("Expected s3 driver and default cache age, got %+v", prod)
	}

	staging, ok := config.Store("staging")
	if !ok || staging.Driver != "minio" || staging.CacheMaxAge != 60 {
		t.Errorf("Unexpected staging store: %+v (ok=%v)", staging, ok)
	}

	if _, ok := config.Store("local"); ok {
		t.Error("Expected no store for an unconfigured environment")
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Setenv("STATICPUSH_HOME", t.TempDir())
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for an explicit missing config file")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("STATICPUSH_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("STATICPUSH_ENVIRONMENT", "production")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.Environment != "production" {
		t.Errorf("Expected environment from env var, got %q", config.Environment)
	}
}

func TestGetHomeWithEnvVar(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "home")
	t.Setenv("STATICPUSH_HOME", custom)

	home, err := GetHome()
	if err != nil {
		t.Fatalf("GetHome() failed: %v", err)
	}
	if home != custom {
		t.Errorf("Expected %s, got %s", custom, home)
	}

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(custom, "config") {
		t.Errorf("Unexpected config dir %s", dir)
	}
}
