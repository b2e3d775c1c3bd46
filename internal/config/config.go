package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	YtDlp   string `toml:"yt_dlp" yaml:"yt_dlp"`
	FFmpeg  string `toml:"ffmpeg" yaml:"ffmpeg"`
	FFprobe string `toml:"ffprobe" yaml:"ffprobe"`
	// Format is the yt-dlp format selector used for downloads.
	Format string `toml:"format" yaml:"format"`
	// ShowWarnings surfaces yt-dlp warning lines at warn level.
	ShowWarnings bool `toml:"show_warnings" yaml:"show_warnings"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config holds every tunable of a run.
//
// Values are layered: defaults, then the config file, then YCSP_* environment
// variables. Command-line flags are applied on top by the CLI before Validate.
type Config struct {
	Output       string `toml:"output" yaml:"output"`
	Language     string `toml:"language" yaml:"language"`
	Alphabet     string `toml:"alphabet" yaml:"alphabet"`
	AutoCaptions bool   `toml:"auto_captions" yaml:"auto_captions"`
	Workers      int    `toml:"workers" yaml:"workers"`
	Manifest     bool   `toml:"manifest" yaml:"manifest"`
	// TimeoutSeconds bounds a whole run; 0 disables the limit.
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`

	Tools   Tools   `toml:"tools" yaml:"tools"`
	Logging Logging `toml:"logging" yaml:"logging"`
}

// DefaultFileName is looked up in the working directory when no --config is given.
const DefaultFileName = "ycsp.toml"

// Load builds a config from defaults, the config file at path (if it exists)
// and the process environment. It returns the resolved file path and whether
// the file was found. An explicitly named file that does not exist is an
// error; the implicit default is optional.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}
	if strings.TrimSpace(path) != "" && !exists {
		return nil, "", false, fmt.Errorf("config file %s: %w", resolved, fs.ErrNotExist)
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolvePath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", abs)
		}
		return abs, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return abs, false, nil
	default:
		return "", false, fmt.Errorf("stat config: %w", err)
	}
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml", "":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported extension %q (want .toml or .yaml)", path, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from YCSP_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("YCSP_OUTPUT", &c.Output)
	str("YCSP_LANG", &c.Language)
	str("YCSP_ALPHABET", &c.Alphabet)
	str("YCSP_YTDLP", &c.Tools.YtDlp)
	str("YCSP_FFMPEG", &c.Tools.FFmpeg)
	str("YCSP_FFPROBE", &c.Tools.FFprobe)
	str("YCSP_FORMAT", &c.Tools.Format)
	str("YCSP_LOG_LEVEL", &c.Logging.Level)
	str("YCSP_LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("YCSP_WORKERS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("YCSP_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

// Timeout returns the run deadline as a duration; 0 means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
