package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/ycsp/internal/config"
	"github.com/forPelevin/ycsp/internal/logging"
	"github.com/forPelevin/ycsp/internal/pipeline"
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "File with one video URL per line")
	f.StringP("output", "o", "./resources", "Output directory")
	f.String("lang", "en", "Caption language (BCP 47 tag)")
	f.String("alphabet", "hangul", "Extra script kept in caption text: hangul, cyrillic, greek, hiragana or none")
	f.Bool("auto-captions", false, "Fall back to automatically generated caption tracks")
	f.Int("workers", 1, "Number of sources processed concurrently")
	f.Bool("manifest", false, "Write manifest.json next to each source")
	f.String("format", "", "yt-dlp format selector")
	f.String("config", "", "Config file (.toml or .yaml); defaults to ./"+config.DefaultFileName+" when present")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-format", "console", "Log format: console or json")
	f.Duration("timeout", 0, "Abort the run after this long (0 disables)")
	_ = cmd.MarkFlagRequired("input")
}

func runCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	cfgPath, _ := flags.GetString("config")
	cfg, cfgFile, found, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if found {
		logger.Debug("config loaded", "path", cfgFile)
	}

	input, _ := flags.GetString("input")
	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cfg.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	sum, err := pipeline.Run(ctx, pipeline.Config{
		InputPath:    absIn,
		OutDir:       cfg.Output,
		Language:     cfg.Language,
		Alphabet:     cfg.Alphabet,
		AutoCaptions: cfg.AutoCaptions,
		Manifest:     cfg.Manifest,
		Workers:      cfg.Workers,
		Logger:       logger,
		YtDlpPath:    cfg.Tools.YtDlp,
		FFmpegPath:   cfg.Tools.FFmpeg,
		FFprobePath:  cfg.Tools.FFprobe,
		Format:       cfg.Tools.Format,
		ShowWarnings: cfg.Tools.ShowWarnings,
	})
	if len(sum.Results) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(cmd.OutOrStdout(), sum))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("run timed out after %s: %w", cfg.Timeout(), err)
	}
	return err
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	set := func(name string, apply func() error) error {
		if !f.Changed(name) {
			return nil
		}
		if err := apply(); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		return nil
	}
	str := func(name string, dst *string) error {
		return set(name, func() (err error) {
			*dst, err = f.GetString(name)
			return err
		})
	}
	boolean := func(name string, dst *bool) error {
		return set(name, func() (err error) {
			*dst, err = f.GetBool(name)
			return err
		})
	}

	return errors.Join(
		str("output", &cfg.Output),
		str("lang", &cfg.Language),
		str("alphabet", &cfg.Alphabet),
		str("format", &cfg.Tools.Format),
		str("log-level", &cfg.Logging.Level),
		str("log-format", &cfg.Logging.Format),
		boolean("auto-captions", &cfg.AutoCaptions),
		boolean("manifest", &cfg.Manifest),
		set("workers", func() (err error) {
			cfg.Workers, err = f.GetInt("workers")
			return err
		}),
		set("timeout", func() error {
			d, err := f.GetDuration("timeout")
			if err != nil {
				return err
			}
			if d != 0 && (d < time.Second || d%time.Second != 0) {
				return fmt.Errorf("must be 0 or a whole number of seconds, got %s", d)
			}
			cfg.TimeoutSeconds = int(d / time.Second)
			return nil
		}),
	)
}
