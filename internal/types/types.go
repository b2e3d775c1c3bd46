package types

import "time"

// CaptionDocument is the raw timed-text payload of one caption track.
type CaptionDocument struct {
	Language string
	Raw      []byte
}

// Interval is one caption entry in document order. StartToken and
// DurationToken keep the attribute text exactly as it appeared in the
// document; Start and Duration are the parsed values.
type Interval struct {
	StartToken    string
	DurationToken string
	Start         time.Duration
	Duration      time.Duration
	Text          string
}

func (iv Interval) End() time.Duration { return iv.Start + iv.Duration }

type ClipPlan struct {
	ID      string
	Start   time.Duration
	End     time.Duration
	Caption string
}

// CaptionTrack is one downloadable caption rendition advertised by a source.
type CaptionTrack struct {
	Language  string
	Name      string
	URL       string
	Automatic bool
}

type SourceInfo struct {
	URL      string
	ID       string
	Title    string
	Captions map[string][]CaptionTrack
}

type State string

const (
	StateFetching        State = "fetching"
	StatePreparing       State = "preparing"
	StateParsingCaptions State = "parsing_captions"
	StateExtracting      State = "extracting"
	StateDone            State = "done"
	StateFailed          State = "failed"
	// StateSkipped marks sources never started because the run stopped early.
	StateSkipped         State = "skipped"
)

// SourceResult records how far one source got.
type SourceResult struct {
	URL     string
	Title   string
	State   State
	Clips   int
	Err     error
	Elapsed time.Duration
}

type Manifest struct {
	Input    string         `json:"input"`
	Title    string         `json:"title"`
	Language string         `json:"language"`
	Original string         `json:"original"`
	Clips    []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID          string  `json:"id"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	Text        string  `json:"text"`
	File        string  `json:"file"`
	CaptionFile string  `json:"caption_file"`
}
