package captions

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/ycsp/internal/types"
)

// Reader streams caption intervals out of a timed-text (format 3) document:
//
//	<timedtext format="3"><body><p t="1500" d="2000">text</p>...</body></timedtext>
//
// Intervals are returned in document order, one per Read call. A Reader cannot
// be rewound; Read returns io.EOF once the document is exhausted.
type Reader struct {
	dec  *xml.Decoder
	path []string
	err  error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: xml.NewDecoder(r)}
}

// Parse reads every interval of doc.
func Parse(doc types.CaptionDocument) ([]types.Interval, error) {
	r := NewReader(bytes.NewReader(doc.Raw))
	var out []types.Interval
	for {
		iv, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
}

// Read returns the next interval with non-empty text. Nodes without any
// character data are skipped; whitespace-only text is kept as is. Any error is
// sticky.
func (r *Reader) Read() (types.Interval, error) {
	if r.err != nil {
		return types.Interval{}, r.err
	}
	for {
		offset := r.dec.InputOffset()
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			if len(r.path) > 0 {
				r.err = &types.ParseError{Offset: offset, Err: io.ErrUnexpectedEOF}
				return types.Interval{}, r.err
			}
			r.err = io.EOF
			return types.Interval{}, r.err
		}
		if err != nil {
			r.err = &types.ParseError{Offset: offset, Err: err}
			return types.Interval{}, r.err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !r.atParagraph(el) {
				r.path = append(r.path, el.Name.Local)
				continue
			}
			iv, err := r.readParagraph(el, offset)
			if err != nil {
				r.err = err
				return types.Interval{}, err
			}
			if iv.Text == "" {
				continue
			}
			return iv, nil
		case xml.EndElement:
			if len(r.path) > 0 {
				r.path = r.path[:len(r.path)-1]
			}
		}
	}
}

// atParagraph reports whether el is a <p> directly below the root's <body>.
func (r *Reader) atParagraph(el xml.StartElement) bool {
	return el.Name.Local == "p" && len(r.path) == 2 && r.path[1] == "body"
}

func (r *Reader) readParagraph(el xml.StartElement, offset int64) (types.Interval, error) {
	var (
		iv         types.Interval
		haveT      bool
		haveD      bool
		err        error
		startValue float64
		durValue   float64
	)
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "t":
			iv.StartToken, haveT = a.Value, true
		case "d":
			iv.DurationToken, haveD = a.Value, true
		}
	}
	if !haveT {
		return iv, &types.ParseError{Offset: offset, Attr: "t", Err: errors.New("missing attribute")}
	}
	if !haveD {
		return iv, &types.ParseError{Offset: offset, Attr: "d", Err: errors.New("missing attribute")}
	}
	if startValue, err = parseMillis(iv.StartToken); err != nil {
		return iv, &types.ParseError{Offset: offset, Attr: "t", Value: iv.StartToken, Err: err}
	}
	if durValue, err = parseMillis(iv.DurationToken); err != nil {
		return iv, &types.ParseError{Offset: offset, Attr: "d", Value: iv.DurationToken, Err: err}
	}
	if startValue+durValue > maxMillis {
		return iv, &types.ParseError{Offset: offset, Attr: "d", Value: iv.DurationToken, Err: errOutOfRange}
	}
	iv.Start = millis(startValue)
	iv.Duration = millis(durValue)

	text, err := r.paragraphText()
	if err != nil {
		return iv, &types.ParseError{Offset: offset, Err: err}
	}
	iv.Text = norm.NFC.String(text)
	return iv, nil
}

// paragraphText consumes tokens up to the closing </p>. Text directly inside
// the paragraph and inside its <s> word segments is kept; other markup is
// dropped.
func (r *Reader) paragraphText() (string, error) {
	var (
		b     strings.Builder
		inner []string
	)
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			inner = append(inner, el.Name.Local)
		case xml.EndElement:
			if len(inner) == 0 {
				return b.String(), nil
			}
			inner = inner[:len(inner)-1]
		case xml.CharData:
			if len(inner) == 0 || (len(inner) == 1 && inner[0] == "s") {
				b.Write(el)
			}
		}
	}
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = float64(math.MaxInt64/int64(time.Millisecond)) - 1

var errOutOfRange = errors.New("milliseconds out of range")

func parseMillis(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	if v < 0 {
		return 0, fmt.Errorf("negative milliseconds")
	}
	if v > maxMillis {
		return 0, errOutOfRange
	}
	return v, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
