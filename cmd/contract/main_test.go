package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/kjstillabower/codex-platform-contract/internal/config"
	httpapi "github.com/kjstillabower/codex-platform-contract/internal/http"
	"github.com/kjstillabower/codex-platform-contract/internal/testhelpers"
)

func configDir(t *testing.T, yaml string) string {
	t.Helper()
	for _, key := range []string{"ENV_NAME", "CODEX_BASE_URL", "CODEX_API_KEY", "CODEX_REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("LOG_LEVEL", "ERROR")

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestRun_AllScenariosPass(t *testing.T) {
	double := testhelpers.StartDouble(t, httpapi.RouterOptions{})
	dir := configDir(t, "client:\n  base_url: \""+double.BaseURL+"\"\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config-dir", dir}, &stdout, &stderr)

	if code != exitPass {
		t.Fatalf("run() = %d, want %d\nstdout:\n%s\nstderr:\n%s", code, exitPass, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "6 scenarios, 0 failed") {
		t.Errorf("stdout = %q, want summary line", stdout.String())
	}
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	double := testhelpers.StartDouble(t, httpapi.RouterOptions{})
	dir := configDir(t, "client:\n  base_url: \"http://127.0.0.1:1/api/\"\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--config-dir", dir,
		"--base-url", double.BaseURL,
		"--scenario", "get_platform_by_name,get_platform_by_id",
		"--lookup-name", "Saturn",
		"--lookup-id", "66eb0fae96ad1476e9e20c56",
	}, &stdout, &stderr)

	if code != exitPass {
		t.Fatalf("run() = %d, want pass\nstdout:\n%s", code, stdout.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "2 scenarios, 0 failed") || strings.Contains(out, "get_platforms ") {
		t.Errorf("stdout = %q, want only the two selected scenarios", out)
	}
}

func TestRun_FailureExitCode(t *testing.T) {
	double := testhelpers.StartDouble(t, httpapi.RouterOptions{APIKey: "s3cret"})
	dir := configDir(t, "client:\n  base_url: \""+double.BaseURL+"\"\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config-dir", dir, "--scenario", "get_platforms"}, &stdout, &stderr)

	if code != exitFail {
		t.Fatalf("run() = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stdout.String(), "FAIL  get_platforms") {
		t.Errorf("stdout = %q, want FAIL line", stdout.String())
	}

	t.Setenv("CODEX_API_KEY", "s3cret")
	stdout.Reset()
	if code := run(context.Background(), []string{"--config-dir", dir, "--scenario", "get_platforms"}, &stdout, &stderr); code != exitPass {
		t.Errorf("run() with API key = %d, want pass\n%s", code, stdout.String())
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(dir string) []string
	}{
		{"unknown flag", func(dir string) []string { return []string{"--config-dir", dir, "--bogus"} }},
		{"missing config dir", func(string) []string { return []string{"--config-dir", "/nonexistent/codex"} }},
		{"unknown scenario", func(dir string) []string { return []string{"--config-dir", dir, "--scenario", "nope"} }},
		{"bad base url", func(dir string) []string { return []string{"--config-dir", dir, "--base-url", "not a url"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := configDir(t, "{}\n")
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args(dir), &stdout, &stderr); code != exitConfig {
				t.Errorf("run() = %d, want %d (stderr=%q)", code, exitConfig, stderr.String())
			}
		})
	}
}

func TestRun_List(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--list"}, &stdout, &stderr); code != exitPass {
		t.Fatalf("run(--list) = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 6 || lines[0] != "get_platforms" {
		t.Errorf("--list output = %q", stdout.String())
	}
}

func TestApplyFlags_Timeout(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want time.Duration
	}{
		{"unset keeps config", nil, 3 * time.Second},
		{"explicit zero disables", []string{"--timeout", "0s"}, 0},
		{"explicit value", []string{"--timeout", "1500ms"}, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts options
			flags := pflag.NewFlagSet("contract", pflag.ContinueOnError)
			opts.AddFlags(flags)
			if err := flags.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}
			cfg := &config.Config{ClientTimeout: 3 * time.Second}
			applyFlags(flags, &opts, cfg)
			if cfg.ClientTimeout != tt.want {
				t.Errorf("ClientTimeout = %v, want %v", cfg.ClientTimeout, tt.want)
			}
		})
	}
}
