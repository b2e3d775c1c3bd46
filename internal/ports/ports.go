package ports

import (
	"context"
	"time"

	"github.com/forPelevin/ycsp/internal/types"
)

type SourceResolver interface {
	Resolve(ctx context.Context, url string) (types.SourceInfo, error)
	Download(ctx context.Context, src types.SourceInfo, outPath string) error
}

type CaptionFetcher interface {
	Fetch(ctx context.Context, src types.SourceInfo, lang string) (types.CaptionDocument, error)
}

type Extractor interface {
	ExtractClip(ctx context.Context, srcPath string, start, end time.Duration, outPath string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}
