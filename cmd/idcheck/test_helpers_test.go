package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcheck/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	logDir     string
	videoDir   string
	voiceDir   string
	configPath string
}

type cliEnvOptions struct {
	videoEndpoint string
	voiceEndpoint string
	ntfyTopic     string
}

func setupCLITestEnv(t *testing.T, opts cliEnvOptions) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("IDCHECK_VIDEO_ENDPOINT", "")
	t.Setenv("IDCHECK_VOICE_ENDPOINT", "")

	env := &cliTestEnv{
		baseDir:    base,
		logDir:     filepath.Join(base, "logs"),
		videoDir:   filepath.Join(base, "video"),
		voiceDir:   filepath.Join(base, "voice"),
		configPath: filepath.Join(base, "idcheck.toml"),
	}
	if opts.videoEndpoint == "" {
		opts.videoEndpoint = "http://127.0.0.1:1/video"
	}
	if opts.voiceEndpoint == "" {
		opts.voiceEndpoint = "http://127.0.0.1:1/voice"
	}
	writeTestConfig(t, env, opts)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, opts cliEnvOptions) {
	t.Helper()
	mode := func(name, endpoint, dir string) string {
		return fmt.Sprintf("[%s]\nendpoint = %q\nsource_dir = %q\nretry_backoff_ms = 0\nfile_delay_ms = 0\nfailure_cooldown_seconds = 0\n\n", name, endpoint, dir)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nlog_dir = %q\n\n", env.logDir)
	b.WriteString(mode("video", opts.videoEndpoint, env.videoDir))
	b.WriteString(mode("voice", opts.voiceEndpoint, env.voiceDir))
	fmt.Fprintf(&b, "[notifications]\nntfy_topic = %q\n", opts.ntfyTopic)
	if err := os.WriteFile(env.configPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// videoAPI answers every upload with body.
func videoAPI(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, ok := bodies[header.Filename]
		if !ok {
			http.Error(w, "unknown file", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeVideoFiles(t *testing.T, env *cliTestEnv, names ...string) {
	t.Helper()
	testsupport.WriteFiles(t, env.videoDir, 32, names...)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
