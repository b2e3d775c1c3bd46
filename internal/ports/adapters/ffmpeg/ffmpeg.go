package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/ycsp/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractClip copies [start, end) of inMP4 into outMP4 without re-encoding.
// The seek is placed before -i so ffmpeg seeks the input directly; outMP4 is
// overwritten.
func (a *Adapter) ExtractClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, clipArgs(inMP4, start, end, outMP4)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return &types.ExtractionError{Target: outMP4, Output: string(b), Err: err}
	}
	return nil
}

func clipArgs(inMP4 string, start, end time.Duration, outMP4 string) []string {
	return []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-i", inMP4,
		"-t", fmtSeconds(end - start),
		"-map", "0",
		"-vcodec", "copy",
		"-acodec", "copy",
		outMP4,
	}
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
