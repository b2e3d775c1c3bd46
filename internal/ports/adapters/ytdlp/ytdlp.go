package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/ycsp/internal/types"
)

const DefaultFormat = "best[ext=mp4]/best"

type Options struct {
	Bin    string
	Format string
	// ShowWarnings forwards yt-dlp warning lines to the logger at warn level
	// instead of debug.
	ShowWarnings bool
	Logger       *slog.Logger
}

type Adapter struct {
	bin          string
	format       string
	showWarnings bool
	logger       *slog.Logger
}

func New(opts Options) *Adapter {
	a := &Adapter{
		bin:          opts.Bin,
		format:       opts.Format,
		showWarnings: opts.ShowWarnings,
		logger:       opts.Logger,
	}
	if a.bin == "" {
		a.bin = "yt-dlp"
	}
	if a.format == "" {
		a.format = DefaultFormat
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Resolve runs `yt-dlp -J` and returns the title and advertised caption tracks.
func (a *Adapter) Resolve(ctx context.Context, url string) (types.SourceInfo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return types.SourceInfo{}, fmt.Errorf("%w: empty source locator", types.ErrSourceUnavailable)
	}

	cmd := exec.CommandContext(ctx, a.bin, resolveArgs(url)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("%w: yt-dlp dump json: %w\n%s", types.ErrSourceUnavailable, err, strings.TrimSpace(string(out)))
	}

	raw, warnings, err := splitJSON(out)
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	a.logWarnings(url, warnings)

	info, err := parseInfo(raw)
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	info.URL = url
	return info, nil
}

// Download fetches the primary media stream to outPath, replacing any
// existing file.
func (a *Adapter) Download(ctx context.Context, src types.SourceInfo, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.bin, downloadArgs(src.URL, a.format, outPath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: yt-dlp download: %w\n%s", types.ErrSourceUnavailable, err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%w: yt-dlp reported success but %s is missing: %w", types.ErrSourceUnavailable, outPath, err)
	}
	return nil
}

// Version returns `yt-dlp --version`.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, a.bin, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp --version: %w, output: %s", err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func resolveArgs(url string) []string {
	// --no-config first so user config files cannot change the output shape.
	return []string{"--no-config", "-J", "--skip-download", "--no-progress", "--no-playlist", url}
}

func downloadArgs(url, format, outPath string) []string {
	return []string{
		"--no-config",
		"--no-progress",
		"--no-playlist",
		"--force-overwrites",
		"-f", format,
		"-o", escapeTemplate(outPath),
		url,
	}
}

// escapeTemplate protects literal '%' in a path from yt-dlp's output template
// expansion.
func escapeTemplate(p string) string {
	return strings.ReplaceAll(p, "%", "%%")
}

// splitJSON separates the JSON document from warning lines yt-dlp mixes into
// its combined output.
func splitJSON(out []byte) ([]byte, []string, error) {
	var (
		jsonLine string
		warnings []string
	)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			jsonLine = line
			continue
		}
		warnings = append(warnings, line)
	}
	if jsonLine == "" {
		return nil, warnings, errors.New("no JSON found in yt-dlp output")
	}
	return []byte(jsonLine), warnings, nil
}

func (a *Adapter) logWarnings(url string, warnings []string) {
	level := slog.LevelDebug
	if a.showWarnings {
		level = slog.LevelWarn
	}
	for _, w := range warnings {
		a.logger.Log(context.Background(), level, "yt-dlp", "url", url, "line", w)
	}
}
