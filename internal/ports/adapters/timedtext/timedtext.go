package timedtext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/forPelevin/ycsp/internal/types"
)

const (
	requestTimeout = 60 * time.Second
	// maxDocumentBytes bounds a caption download; real tracks are far smaller.
	maxDocumentBytes = 32 << 20
)

var ErrNotOk = errors.New("unexpected non 200 status code")

type Adapter struct {
	client         *http.Client
	allowAutomatic bool
}

// New returns a fetcher for timed-text tracks. Automatically generated tracks
// are only used when allowAutomatic is set.
func New(client *http.Client, allowAutomatic bool) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Adapter{client: client, allowAutomatic: allowAutomatic}
}

func (a *Adapter) Fetch(ctx context.Context, src types.SourceInfo, lang string) (types.CaptionDocument, error) {
	track, ok := a.selectTrack(src.Captions, lang)
	if !ok {
		return types.CaptionDocument{}, fmt.Errorf("%w: no %q caption track on %s", types.ErrCaptionNotFound, lang, src.URL)
	}

	u, err := trackURL(track.URL)
	if err != nil {
		return types.CaptionDocument{}, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return types.CaptionDocument{}, err
	}
	res, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.CaptionDocument{}, fmt.Errorf("captions request: %w", ctx.Err())
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.CaptionDocument{}, fmt.Errorf("%w: captions request timed out after %s", types.ErrSourceUnavailable, requestTimeout)
		}
		return types.CaptionDocument{}, fmt.Errorf("%w: captions request: %w", types.ErrSourceUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentBytes))
	if err != nil {
		return types.CaptionDocument{}, fmt.Errorf("%w: reading captions body: %w", types.ErrSourceUnavailable, err)
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return types.CaptionDocument{}, fmt.Errorf("%w: captions file status code %d: %w", types.ErrCaptionNotFound, res.StatusCode, ErrNotOk)
	case res.StatusCode != http.StatusOK:
		return types.CaptionDocument{}, fmt.Errorf("%w: captions file status code %d: %w", types.ErrSourceUnavailable, res.StatusCode, ErrNotOk)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return types.CaptionDocument{}, fmt.Errorf("%w: empty %q caption document on %s", types.ErrCaptionNotFound, track.Language, src.URL)
	}
	return types.CaptionDocument{Language: track.Language, Raw: body}, nil
}

// selectTrack looks for an exact language key first, then for any key with
// the same base language (en matches en-US and en-orig). Manual tracks win
// over automatic ones.
func (a *Adapter) selectTrack(tracks map[string][]types.CaptionTrack, lang string) (types.CaptionTrack, bool) {
	if t, ok := a.firstUsable(tracks[lang]); ok {
		return t, true
	}

	want, err := language.Parse(lang)
	if err != nil {
		return types.CaptionTrack{}, false
	}
	wantBase, _ := want.Base()

	keys := make([]string, 0, len(tracks))
	for k := range tracks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var candidates []types.CaptionTrack
	for _, k := range keys {
		tag, err := language.Parse(strings.TrimSuffix(k, "-orig"))
		if err != nil {
			continue
		}
		if base, _ := tag.Base(); base == wantBase {
			candidates = append(candidates, tracks[k]...)
		}
	}
	return a.firstUsable(candidates)
}

func (a *Adapter) firstUsable(tracks []types.CaptionTrack) (types.CaptionTrack, bool) {
	for _, t := range tracks {
		if !t.Automatic {
			return t, true
		}
	}
	if !a.allowAutomatic {
		return types.CaptionTrack{}, false
	}
	if len(tracks) == 0 {
		return types.CaptionTrack{}, false
	}
	return tracks[0], true
}

// trackURL forces the timed-text format 3 rendition of a track URL.
func trackURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid caption track url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("invalid caption track url %q: absolute URL with host is required", raw)
	}
	q := u.Query()
	q.Set("fmt", "srv3")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
