//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 2 * time.Minute

type cliRunResult struct {
	exitCode int
	stdout   string
	stderr   string
}

func (r cliRunResult) output() string { return r.stdout + r.stderr }

// runCLI executes `go run ./cmd/ycsp` from the repo root with args.
func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/ycsp"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR": "1",
			"TERM":     "dumb",
		},
		env,
	)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{stdout: stdout.String(), stderr: stderr.String()}
	if err == nil {
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}
	t.Fatalf("run command: %v\noutput:\n%s", err, res.output())
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}
	t.Fatalf("could not locate go.mod")
	return ""
}

// writeTool drops an executable shell script into dir.
func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Fake yt-dlp: -J prints $YCSP_FAKE_INFO unless the URL contains "missing";
// a download copies $YCSP_FAKE_MEDIA (or writes a stub) to the -o path.
const fakeYtDlp = `for last; do :; done
case "$last" in
  *missing*) echo "ERROR: [youtube] missing: Video unavailable" >&2; exit 1 ;;
esac
for a in "$@"; do
  if [ "$a" = "-J" ]; then printf '%s\n' "$YCSP_FAKE_INFO"; exit 0; fi
  if [ "$a" = "--version" ]; then echo "2099.01.01"; exit 0; fi
done
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; out="$1"; fi
  shift
done
if [ -n "$YCSP_FAKE_MEDIA" ]; then cp "$YCSP_FAKE_MEDIA" "$out"; else printf 'media' > "$out"; fi
`

// Fake ffmpeg: records its arguments and writes the output file (last arg).
const fakeFFmpeg = `echo "$@" >> "$YCSP_FAKE_FFMPEG_LOG"
for last; do :; done
printf 'clip' > "$last"
`

const fakeFFprobe = `echo "12.500"
`
