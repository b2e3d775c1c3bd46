package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/forPelevin/ycsp/internal/domain/captions"
	"github.com/forPelevin/ycsp/internal/logging"
)

// Validate ensures the configuration is usable. It canonicalizes Language in
// place ("EN-us" becomes "en-US").
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output must be set")
	}
	if err := c.validateLanguage(); err != nil {
		return err
	}
	if _, err := captions.Alphabet(c.Alphabet); err != nil {
		return fmt.Errorf("alphabet: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLanguage() error {
	raw := strings.TrimSpace(c.Language)
	if raw == "" {
		return errors.New("language must be set")
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return fmt.Errorf("language %q: %w", raw, err)
	}
	c.Language = tag.String()
	return nil
}

func (c *Config) validateTools() error {
	for name, v := range map[string]string{
		"tools.yt_dlp":  c.Tools.YtDlp,
		"tools.ffmpeg":  c.Tools.FFmpeg,
		"tools.ffprobe": c.Tools.FFprobe,
		"tools.format":  c.Tools.Format,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
