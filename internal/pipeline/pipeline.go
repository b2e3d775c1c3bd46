package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/ycsp/internal/domain/captions"
	"github.com/forPelevin/ycsp/internal/fsutil"
	"github.com/forPelevin/ycsp/internal/logging"
	"github.com/forPelevin/ycsp/internal/ports"
	"github.com/forPelevin/ycsp/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/ycsp/internal/ports/adapters/timedtext"
	"github.com/forPelevin/ycsp/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/ycsp/internal/types"
	"github.com/forPelevin/ycsp/internal/usecase"
)

type Config struct {
	InputPath    string
	OutDir       string
	Language     string
	Alphabet     string
	AutoCaptions bool
	Manifest     bool
	// Workers bounds how many sources are processed at once; 0 means 1.
	Workers int
	Logger  *slog.Logger

	YtDlpPath   string
	FFmpegPath  string
	FFprobePath string
	// Format is the yt-dlp format selector.
	Format       string
	ShowWarnings bool

	// HTTPClient fetches caption tracks. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Resolver, Captions and Extractor replace the yt-dlp, timed-text and
	// ffmpeg adapters when set.
	Resolver  ports.SourceResolver
	Captions  ports.CaptionFetcher
	Extractor ports.Extractor
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return errors.New("input is empty")
	}
	if strings.TrimSpace(c.OutDir) == "" {
		return errors.New("output is empty")
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("language is empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if _, err := captions.Alphabet(c.Alphabet); err != nil {
		return err
	}
	return nil
}

// Summary lists one result per input line, in input order.
type Summary struct {
	RunID   string
	Results []types.SourceResult
	Elapsed time.Duration
}

// Counts returns how many sources finished, failed or were never started.
func (s Summary) Counts() (done, failed, skipped int) {
	for _, r := range s.Results {
		switch r.State {
		case types.StateDone:
			done++
		case types.StateSkipped:
			skipped++
		default:
			failed++
		}
	}
	return done, failed, skipped
}

// Run checks the input and output locations, then processes every source
// listed in the input file. Per-source failures are logged and recorded in the
// summary; Run returns an error only for fatal conditions (bad input or output
// location, cancellation).
func Run(ctx context.Context, cfg Config) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	if err := cfg.Validate(); err != nil {
		return sum, err
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("run_id", sum.RunID)
	started := time.Now()

	if err := checkPaths(cfg.InputPath, cfg.OutDir); err != nil {
		return sum, err
	}
	urls, err := readURLs(cfg.InputPath)
	if err != nil {
		return sum, err
	}
	log.Info("run started", "component", "pipeline", "sources", len(urls), "output", cfg.OutDir, "workers", max(cfg.Workers, 1))

	uc, err := buildUsecase(cfg, log)
	if err != nil {
		return sum, err
	}

	sum.Results = make([]types.SourceResult, len(urls))
	for i, u := range urls {
		sum.Results[i] = types.SourceResult{URL: u, State: types.StateSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := uc.Process(gctx, u)
			sum.Results[i] = res
			switch {
			case err == nil:
				return nil
			case types.IsFatal(err):
				return err
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				return nil
			}
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}
	sum.Elapsed = time.Since(started)

	done, failed, skipped := sum.Counts()
	attrs := []any{"component", "pipeline", "done", done, "failed", failed, "skipped", skipped, "elapsed", sum.Elapsed.Round(time.Millisecond)}
	if runErr != nil {
		log.Error("run aborted", append(attrs, "err", runErr)...)
		return sum, runErr
	}
	log.Info("run finished", attrs...)
	return sum, nil
}

func checkPaths(input, out string) error {
	if err := fsutil.CheckRegularFile(input); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInputFile, err)
	}
	if err := fsutil.EnsureDir(out); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputPath, err)
	}
	if err := fsutil.CheckWritableDir(out); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputPath, err)
	}
	return nil
}

// readURLs returns one entry per line with line terminators stripped. Blank
// lines are kept; they fail later at resolution like any bad locator.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInputFile, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		urls = append(urls, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrInputFile, path, err)
	}
	return urls, nil
}

func buildUsecase(cfg Config, log *slog.Logger) (usecase.Usecase, error) {
	block, err := captions.Alphabet(cfg.Alphabet)
	if err != nil {
		return usecase.Usecase{}, err
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = ytdlp.New(ytdlp.Options{
			Bin:          cfg.YtDlpPath,
			Format:       cfg.Format,
			ShowWarnings: cfg.ShowWarnings,
			Logger:       log,
		})
	}
	fetcher := cfg.Captions
	if fetcher == nil {
		fetcher = timedtext.New(cfg.HTTPClient, cfg.AutoCaptions)
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	}

	return usecase.New(usecase.Deps{
		Resolver:  resolver,
		Captions:  fetcher,
		Extractor: extractor,
		Logger:    log,
	}, usecase.Options{
		OutRoot:       cfg.OutDir,
		Language:      cfg.Language,
		Sanitizer:     captions.NewSanitizer(block),
		WriteManifest: cfg.Manifest,
	}), nil
}

// ensure adapters implement ports
var _ ports.SourceResolver = (*ytdlp.Adapter)(nil)
var _ ports.CaptionFetcher = (*timedtext.Adapter)(nil)
var _ ports.Extractor = (*ffmpeg.Adapter)(nil)
