package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseErrorUnwrapsToSentinelAndCause(t *testing.T) {
	cause := errors.New("invalid syntax")
	err := fmt.Errorf("source x: %w", &ParseError{Offset: 42, Attr: "t", Value: "abc", Err: cause})

	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be retained, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Attr != "t" {
		t.Fatalf("expected *ParseError with attr t, got %#v", pe)
	}
	for _, fragment := range []string{"offset 42", `"t"="abc"`, "invalid syntax"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestExtractionErrorCarriesOutput(t *testing.T) {
	err := &ExtractionError{Target: "clip.mp4", Output: "Invalid data found\n", Err: errors.New("exit status 1")}
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected process output in message, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("x: %w", ErrInputFile), true},
		{fmt.Errorf("x: %w", ErrOutputPath), true},
		{fmt.Errorf("x: %w", ErrCaptionNotFound), false},
		{&ExtractionError{Err: errors.New("boom")}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Fatalf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
