package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/ycsp/internal/types"
)

const doc = `<timedtext format="3"><body>
<p t="0" d="1000">one</p>
<p t="1000" d="500"></p>
<p t="1500" d="2000">two</p>
<p t="3500" d="700">three</p>
</body></timedtext>`

type fakeResolver struct {
	mu     sync.Mutex
	titles map[string]string
	calls  []string
}

func (f *fakeResolver) Resolve(_ context.Context, url string) (types.SourceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	title, ok := f.titles[url]
	if !ok {
		return types.SourceInfo{}, fmt.Errorf("%w: unknown url %q", types.ErrSourceUnavailable, url)
	}
	return types.SourceInfo{URL: url, Title: title}, nil
}

func (f *fakeResolver) Download(_ context.Context, _ types.SourceInfo, outPath string) error {
	return os.WriteFile(outPath, []byte("video"), 0o644)
}

func (f *fakeResolver) resolved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCaptions struct {
	missing map[string]bool
}

func (f fakeCaptions) Fetch(_ context.Context, src types.SourceInfo, lang string) (types.CaptionDocument, error) {
	if f.missing[src.URL] {
		return types.CaptionDocument{}, types.ErrCaptionNotFound
	}
	return types.CaptionDocument{Language: lang, Raw: []byte(doc)}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractClip(_ context.Context, _ string, _, _ time.Duration, outPath string) error {
	return os.WriteFile(outPath, []byte("clip"), 0o644)
}

func (fakeExtractor) ProbeDuration(context.Context, string) (time.Duration, error) {
	return time.Hour, nil
}

func writeInput(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(input, out string, r *fakeResolver, c fakeCaptions) Config {
	return Config{
		InputPath: input,
		OutDir:    out,
		Language:  "en",
		Resolver:  r,
		Captions:  c,
		Extractor: fakeExtractor{},
	}
}

func TestRun_TwoSources(t *testing.T) {
	out := filepath.Join(t.TempDir(), "resources")
	input := writeInput(t, "https://youtu.be/a\nhttps://youtu.be/b\n")
	r := &fakeResolver{titles: map[string]string{
		"https://youtu.be/a": "First Video",
		"https://youtu.be/b": "Second",
	}}

	sum, err := Run(context.Background(), testConfig(input, out, r, fakeCaptions{}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.RunID == "" {
		t.Fatalf("expected run id")
	}
	if done, failed, skipped := sum.Counts(); done != 2 || failed != 0 || skipped != 0 {
		t.Fatalf("counts = %d/%d/%d", done, failed, skipped)
	}

	for _, title := range []string{"FirstVideo", "Second"} {
		dir := filepath.Join(out, title)
		if _, err := os.Stat(filepath.Join(dir, title+".mp4")); err != nil {
			t.Fatalf("missing source video: %v", err)
		}
		entries, err := os.ReadDir(filepath.Join(dir, "clips"))
		if err != nil {
			t.Fatalf("read clips: %v", err)
		}
		var mp4, txt int
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".mp4":
				mp4++
			case ".txt":
				txt++
			}
		}
		if mp4 != 3 || txt != 3 {
			t.Fatalf("%s: expected 3 clip pairs, got %d mp4 and %d txt", title, mp4, txt)
		}
	}
}

func TestRun_CaptionNotFoundDoesNotStopRun(t *testing.T) {
	out := t.TempDir()
	input := writeInput(t, "u1\nu2\n")
	r := &fakeResolver{titles: map[string]string{"u1": "one", "u2": "two"}}

	sum, err := Run(context.Background(), testConfig(input, out, r, fakeCaptions{missing: map[string]bool{"u1": true}}))
	if err != nil {
		t.Fatalf("per-source failure must not fail the run: %v", err)
	}
	if len(sum.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sum.Results))
	}
	if !errors.Is(sum.Results[0].Err, types.ErrCaptionNotFound) || sum.Results[0].State != types.StateFailed {
		t.Fatalf("unexpected first result: %+v", sum.Results[0])
	}
	if sum.Results[1].State != types.StateDone || sum.Results[1].Clips != 3 {
		t.Fatalf("unexpected second result: %+v", sum.Results[1])
	}
}

func TestRun_OutputIsFile(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "resources")
	if err := os.WriteFile(out, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := writeInput(t, "u1\n")
	r := &fakeResolver{titles: map[string]string{"u1": "one"}}

	_, err := Run(context.Background(), testConfig(input, out, r, fakeCaptions{}))
	if !errors.Is(err, types.ErrOutputPath) {
		t.Fatalf("expected ErrOutputPath, got %v", err)
	}
	if calls := r.resolved(); len(calls) != 0 {
		t.Fatalf("no source may be resolved, got %v", calls)
	}
}

func TestRun_InputFile(t *testing.T) {
	tmp := t.TempDir()
	r := &fakeResolver{}
	for name, input := range map[string]string{
		"missing":   filepath.Join(tmp, "nope.txt"),
		"directory": tmp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Run(context.Background(), testConfig(input, filepath.Join(tmp, "out"), r, fakeCaptions{}))
			if !errors.Is(err, types.ErrInputFile) {
				t.Fatalf("expected ErrInputFile, got %v", err)
			}
		})
	}
}

func TestRun_FatalStopsRemainingSources(t *testing.T) {
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "one"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := writeInput(t, "u1\nu2\n")
	r := &fakeResolver{titles: map[string]string{"u1": "one", "u2": "two"}}

	sum, err := Run(context.Background(), testConfig(input, out, r, fakeCaptions{}))
	if !errors.Is(err, types.ErrOutputPath) {
		t.Fatalf("expected ErrOutputPath, got %v", err)
	}
	if calls := r.resolved(); len(calls) != 1 {
		t.Fatalf("expected only the first source to be resolved, got %v", calls)
	}
	if sum.Results[1].State != types.StateSkipped {
		t.Fatalf("expected second source skipped, got %+v", sum.Results[1])
	}
}

func TestRun_BlankLineFailsAtResolution(t *testing.T) {
	out := t.TempDir()
	input := writeInput(t, "u1\n\nu2\n")
	r := &fakeResolver{titles: map[string]string{"u1": "one", "u2": "two"}}

	sum, err := Run(context.Background(), testConfig(input, out, r, fakeCaptions{}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sum.Results) != 3 {
		t.Fatalf("expected blank line to be kept, got %d results", len(sum.Results))
	}
	if !errors.Is(sum.Results[1].Err, types.ErrSourceUnavailable) {
		t.Fatalf("expected blank line to fail resolution, got %+v", sum.Results[1])
	}
	if sum.Results[2].State != types.StateDone {
		t.Fatalf("source after blank line must still run: %+v", sum.Results[2])
	}
}

func TestRun_WorkersKeepInputOrder(t *testing.T) {
	out := t.TempDir()
	titles := map[string]string{}
	var lines []string
	for i := 0; i < 6; i++ {
		u := fmt.Sprintf("u%d", i)
		titles[u] = fmt.Sprintf("title%d", i)
		lines = append(lines, u)
	}
	input := writeInput(t, strings.Join(lines, "\n"))
	cfg := testConfig(input, out, &fakeResolver{titles: titles}, fakeCaptions{})
	cfg.Workers = 3

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, res := range sum.Results {
		if res.URL != lines[i] || res.State != types.StateDone {
			t.Fatalf("result %d = %+v", i, res)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := writeInput(t, "u1\n")
	r := &fakeResolver{titles: map[string]string{"u1": "one"}}

	_, err := Run(ctx, testConfig(input, t.TempDir(), r, fakeCaptions{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadURLs(t *testing.T) {
	path := writeInput(t, "https://a\r\n\nhttps://b\nlast-without-newline")
	got, err := readURLs(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"https://a", "", "https://b", "last-without-newline"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{InputPath: "in", OutDir: "out", Language: "en"}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	tests := map[string]func(*Config){
		"no input":         func(c *Config) { c.InputPath = "" },
		"no output":        func(c *Config) { c.OutDir = "" },
		"no language":      func(c *Config) { c.Language = " " },
		"negative workers": func(c *Config) { c.Workers = -1 },
		"bad alphabet":     func(c *Config) { c.Alphabet = "runes" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
