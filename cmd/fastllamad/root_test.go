package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fastllamad/internal/config"
	"fastllamad/internal/native/nativetest"
)

func parseServe(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if err := cmd.ParseFlags(append([]string{"--env-file", ""}, args...)); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yaml := "addr: \":1\"\nmodels_dir: " + dir + "\nlog_level: debug\nmax_sessions: 3\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FASTLLAMAD_ADDR", ":2")
	t.Setenv("FASTLLAMAD_MAX_SESSIONS", "5")

	cmd := parseServe(t, "--config", path, "--max-sessions", "7", "--cors-origins", "http://a, http://b")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":2" {
		t.Fatalf("env should override file addr, got %q", cfg.Addr)
	}
	if cfg.MaxSessions != 7 {
		t.Fatalf("flag should override env, got %d", cfg.MaxSessions)
	}
	if cfg.LogLevel != "debug" || cfg.ModelsDir != dir || cfg.WorkspaceDir != dir {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 2 || cfg.CORS.Origins[1] != "http://b" {
		t.Fatalf("cors = %+v", cfg.CORS)
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	cmd := parseServe(t)
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Addr != defaultAddr || cfg.LogLevel != defaultLogLevel || cfg.IndexBackend != "json" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.DataDir != filepath.Join(home, ".fastllamad") {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
}

func TestResolveConfigReadsDotEnv(t *testing.T) {
	const key = "FASTLLAMAD_LOG_FORMAT"
	t.Setenv(key, "")
	os.Unsetenv(key)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte(key+"=json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := parseServe(t, "--env-file", envFile)
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("log format = %q", cfg.LogFormat)
	}
}

func TestResolveConfigRejectsBadFile(t *testing.T) {
	cmd := parseServe(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := resolveConfig(cmd); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestModelsCommandListsFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"7B.bin", "13B.gguf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--env-file", "", "--models-dir", dir})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "7B.bin") || !strings.Contains(s, "13B.gguf") || strings.Contains(s, "notes.txt") {
		t.Fatalf("output = %q", s)
	}
}

func TestSessionsCommandEmptyStore(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sessions", "--env-file", "", "--data-dir", t.TempDir()})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 1 {
		t.Fatalf("expected header only, got %q", out.String())
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfg, err := withDefaults(config.Config{DataDir: filepath.Join(dir, "data"), ModelsDir: dir})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, lis, nativetest.NewEngine(), zerolog.Nop()) }()

	url := "http://" + lis.Addr().String()
	resp, err := http.Get(url + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("serve did not stop")
	}
}
