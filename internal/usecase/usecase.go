package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/forPelevin/ycsp/internal/domain/captions"
	"github.com/forPelevin/ycsp/internal/domain/clips"
	"github.com/forPelevin/ycsp/internal/fsutil"
	"github.com/forPelevin/ycsp/internal/logging"
	"github.com/forPelevin/ycsp/internal/ports"
	"github.com/forPelevin/ycsp/internal/types"
)

type Deps struct {
	Resolver  ports.SourceResolver
	Captions  ports.CaptionFetcher
	Extractor ports.Extractor
	Logger    *slog.Logger
}

// Options are the per-run settings shared by every source.
type Options struct {
	OutRoot       string
	Language      string
	Sanitizer     captions.Sanitizer
	WriteManifest bool
}

type Usecase struct {
	d    Deps
	opts Options
	log  *slog.Logger
}

func New(d Deps, opts Options) Usecase {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	return Usecase{d: d, opts: opts, log: log.With("component", "source")}
}

const (
	clipsDirName = "clips"
	lockFileName = ".ycsp.lock"
	manifestName = "manifest.json"
)

// Process takes one source locator through fetching, preparing, caption
// parsing and extraction. The returned result is filled in even on error and
// reports the state reached. Errors wrapping types.ErrOutputPath are fatal for
// the whole run; every other error only fails this source.
func (u Usecase) Process(ctx context.Context, url string) (types.SourceResult, error) {
	res := types.SourceResult{URL: url}
	started := time.Now()
	log := u.log.With("url", url)

	fail := func(err error) (types.SourceResult, error) {
		log.Error("source failed", "state", types.StateFailed, "failed_in", res.State, "err", err)
		res.State = types.StateFailed
		res.Err = err
		res.Elapsed = time.Since(started)
		return res, err
	}
	enter := func(s types.State) {
		res.State = s
		log.Info("state", "state", s)
	}

	enter(types.StateFetching)
	info, err := u.d.Resolver.Resolve(ctx, url)
	if err != nil {
		return fail(sourceErr("resolve", err))
	}

	enter(types.StatePreparing)
	title := clips.NormalizeTitle(info.Title)
	res.Title = title
	log = log.With("title", title)

	titleDir := filepath.Join(u.opts.OutRoot, title)
	if err := prepareDir(titleDir); err != nil {
		return fail(err)
	}
	lock, err := fsutil.LockDir(ctx, titleDir, lockFileName)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = lock.Unlock() }()

	clipsDir := filepath.Join(titleDir, clipsDirName)
	if err := prepareDir(clipsDir); err != nil {
		return fail(err)
	}
	videoPath := filepath.Join(titleDir, title+".mp4")
	if err := u.d.Resolver.Download(ctx, info, videoPath); err != nil {
		return fail(sourceErr("download", err))
	}
	total := u.probe(ctx, log, videoPath)

	enter(types.StateParsingCaptions)
	doc, err := u.d.Captions.Fetch(ctx, info, u.opts.Language)
	if err != nil {
		return fail(fmt.Errorf("captions %s: %w", u.opts.Language, err))
	}

	enter(types.StateExtracting)
	manifest := types.Manifest{
		Input:    url,
		Title:    title,
		Language: doc.Language,
		Original: filepath.Base(videoPath),
	}
	r := captions.NewReader(bytes.NewReader(doc.Raw))
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		iv, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		caption := u.opts.Sanitizer.Sanitize(iv.Text)
		plan := clips.Plan(iv, title, caption)
		if total > 0 && plan.End > total {
			log.Warn("clip ends after source", "clip", plan.ID, "end", plan.End, "source_duration", total)
		}

		clipPath := filepath.Join(clipsDir, plan.ID+".mp4")
		if err := u.d.Extractor.ExtractClip(ctx, videoPath, plan.Start, plan.End, clipPath); err != nil {
			return fail(err)
		}
		txtPath := filepath.Join(clipsDir, plan.ID+".txt")
		if err := fsutil.WriteFileAtomic(txtPath, []byte(caption), 0o644); err != nil {
			return fail(fmt.Errorf("write caption %s: %w", txtPath, err))
		}
		res.Clips++
		log.Debug("clip written", "clip", plan.ID)

		manifest.Clips = append(manifest.Clips, types.ManifestClip{
			ID:          plan.ID,
			StartSec:    plan.Start.Seconds(),
			EndSec:      plan.End.Seconds(),
			Text:        caption,
			File:        filepath.ToSlash(filepath.Join(clipsDirName, plan.ID+".mp4")),
			CaptionFile: filepath.ToSlash(filepath.Join(clipsDirName, plan.ID+".txt")),
		})
	}

	if u.opts.WriteManifest {
		if err := writeManifest(filepath.Join(titleDir, manifestName), manifest); err != nil {
			return fail(err)
		}
	}

	res.Elapsed = time.Since(started)
	enter(types.StateDone)
	log.Info("source done", "clips", res.Clips, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// prepareDir creates dir when missing. Any failure means the output tree
// cannot hold results and is reported as types.ErrOutputPath.
func prepareDir(dir string) error {
	if err := fsutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputPath, err)
	}
	return nil
}

// probe reports the downloaded duration, or 0 when it cannot be determined.
func (u Usecase) probe(ctx context.Context, log *slog.Logger, path string) time.Duration {
	d, err := u.d.Extractor.ProbeDuration(ctx, path)
	if err != nil {
		log.Warn("probe duration failed", "err", err)
		return 0
	}
	return d
}

func sourceErr(op string, err error) error {
	if errors.Is(err, types.ErrSourceUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, types.ErrSourceUnavailable, err)
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
