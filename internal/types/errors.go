package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputFile         = errors.New("input file error")
	ErrOutputPath        = errors.New("output path error")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrCaptionNotFound   = errors.New("caption not found")
	ErrParse             = errors.New("caption parse error")
	ErrExtraction        = errors.New("extraction error")
)

// IsFatal reports whether err must stop the whole run rather than a single source.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInputFile) || errors.Is(err, ErrOutputPath)
}

// ParseError describes a caption node that could not be turned into an interval.
type ParseError struct {
	Offset int64
	Attr   string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse captions")
	if e.Offset > 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Attr != "" {
		fmt.Fprintf(&b, ": attribute %q=%q", e.Attr, e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// ExtractionError carries the combined output of a failed trim subprocess.
type ExtractionError struct {
	Target string
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("ffmpeg extract %s: %v", e.Target, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}
