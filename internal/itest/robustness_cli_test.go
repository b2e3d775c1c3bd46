//go:build integration

package itest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type robustCase struct {
	name            string
	args            func(t *testing.T) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name:         "no input flag",
			args:         staticArgs(),
			wantContains: []string{`required flag(s) "input" not set`},
		},
		{
			name:         "unknown flag",
			args:         staticArgs("-i", "urls.txt", "--wat"),
			wantContains: []string{"unknown flag: --wat"},
		},
		{
			name:         "workers non int",
			args:         staticArgs("-i", "urls.txt", "--workers", "nope"),
			wantContains: []string{`invalid argument "nope" for "--workers"`},
		},
		{
			name:         "unknown alphabet",
			args:         staticArgs("-i", "urls.txt", "--alphabet", "runes"),
			wantContains: []string{"unknown alphabet"},
		},
		{
			name:         "bad log format from env",
			args:         staticArgs("-i", "urls.txt"),
			env:          map[string]string{"YCSP_LOG_FORMAT": "xml"},
			wantContains: []string{"logging.format"},
		},
		{
			name:         "explicit config missing",
			args:         staticArgs("-i", "urls.txt", "--config", "does-not-exist.toml"),
			wantContains: []string{"config file", "file does not exist"},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_FatalPaths(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name:         "missing input file",
			args:         staticArgs("-i", filepath.Join(repoRoot, "does-not-exist.txt")),
			wantContains: []string{"input file error"},
		},
		{
			name:         "input is directory",
			args:         staticArgs("-i", repoRoot),
			wantContains: []string{"input file error", "not a regular file"},
		},
		{
			name: "output points to file",
			args: func(t *testing.T) []string {
				t.Helper()
				tmp := t.TempDir()
				input := filepath.Join(tmp, "urls.txt")
				outFile := filepath.Join(tmp, "out-file")
				for _, p := range []string{input, outFile} {
					if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
						t.Fatalf("write fixture: %v", err)
					}
				}
				return []string{"run", "-i", input, "-o", outFile}
			},
			env: map[string]string{
				// any resolver call would fail loudly
				"YCSP_YTDLP": "/nonexistent/yt-dlp",
			},
			wantContains:    []string{"output path error", "not a directory"},
			wantNotContains: []string{"/nonexistent/yt-dlp"},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t), tc.env)
			out := res.output()
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", out)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(out, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, out)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(out, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, out)
				}
			}
		})
	}
}

func staticArgs(args ...string) func(t *testing.T) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
