package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"idcheck/internal/config"
	"idcheck/internal/grouping"
	"idcheck/internal/scan"
)

const maxEndpointTimeout = 10 * time.Second

// CheckConfig validates the mode-specific settings.
func CheckConfig(cfg *config.Config, mode config.Mode) Result {
	name := fmt.Sprintf("Config (%s)", mode)
	if err := cfg.Validate(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := cfg.ValidateMode(mode); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "valid"}
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckWritableDirectory verifies that path, or the nearest existing parent
// that would hold it, is writable.
func CheckWritableDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	target := path
	missing := false
	for {
		info, err := os.Stat(target)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, target)}
			}
			break
		}
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		missing = true
		parent := filepath.Dir(target)
		if parent == target {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		target = parent
	}
	if err := unix.Access(target, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	if missing {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSourceFiles scans the source tree and reports how much work a run has.
func CheckSourceFiles(cfg *config.Config, mode config.Mode) Result {
	const name = "Source files"
	mc := cfg.Mode(mode)

	var (
		result scan.Result
		err    error
	)
	if mode == config.ModeVoice {
		result, err = scan.Voice(mc.SourceDir, mc.Extensions, grouping.FolderKeyParser{})
	} else {
		result, err = scan.Video(mc.SourceDir, mc.Extensions, grouping.FilenameKeyParser{})
	}
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(result.Tasks) == 0 {
		return Result{Name: name, Detail: "no matching files found"}
	}
	detail := fmt.Sprintf("%d files in %d groups", len(result.Tasks), result.Groups())
	if n := len(result.EmptyGroups); n > 0 {
		detail += fmt.Sprintf(", %d empty", n)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEndpoint verifies that the API answers HTTP at all. Any status code
// counts as reachable since the identify endpoints only accept uploads.
func CheckEndpoint(ctx context.Context, name, endpoint string, timeout time.Duration) Result {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid endpoint (%v)", err)}
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (HTTP %d)", endpoint, resp.StatusCode)}
}

func endpointTimeout(cfg *config.Config) time.Duration {
	timeout := cfg.UploadTimeout()
	if timeout <= 0 || timeout > maxEndpointTimeout {
		return maxEndpointTimeout
	}
	return timeout
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "unreachable (timed out)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "unreachable (timed out)"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
