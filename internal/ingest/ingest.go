// Package ingest reads experimental spectra from whitespace-delimited text.
//
// Each sample is one line of exactly three columns; the second column is the
// field position and the third the intensity. Lines with any other column
// count are skipped, and so are lines longer than 1 MiB. A third column that
// does not parse to a finite number is skipped as well, unless [Strict] is
// given, in which case it fails with a [RecordError].
package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/numeric"
)

// RecordError reports a malformed line in strict mode.
type RecordError struct {
	Line    int
	Text    string
	Wrapped error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Wrapped)
}

func (e *RecordError) Unwrap() error {
	return e.Wrapped
}

const maxLine = 1 << 20

// lineSplitter splits like bufio.ScanLines but discards lines of maxLine
// bytes or more instead of failing the scan.
type lineSplitter struct {
	dropping bool
	dropped  int
}

func (l *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	i := bytes.IndexByte(data, '\n')
	if l.dropping {
		switch {
		case i >= 0:
			l.dropping = false
			l.dropped++
			return i + 1, nil, nil
		case atEOF:
			l.dropping = false
			l.dropped++
		}
		return len(data), nil, nil
	}
	if i < 0 && !atEOF && len(data) >= maxLine {
		l.dropping = true
		return len(data), nil, nil
	}
	return bufio.ScanLines(data, atEOF)
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type options struct {
	strict bool
	logger *slog.Logger
}

type Option func(*options)

// Strict makes an unparseable intensity column an error instead of a skipped line.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Spectrum is an experimental spectrum in file order.
type Spectrum struct {
	// Field is nil when any accepted line had an unparseable field column.
	Field     []float64
	Intensity []float64
	Skipped   int
}

func (s *Spectrum) Len() int { return len(s.Intensity) }

// Sweep is the width of the field axis, 0 when it is unknown.
func (s *Spectrum) Sweep() float64 {
	if len(s.Field) < 2 {
		return 0
	}
	return numeric.Max(s.Field) - numeric.Min(s.Field)
}

func ParseSpectrum(r io.Reader, opts ...Option) (*Spectrum, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	sp := &Spectrum{Field: []float64{}, Intensity: []float64{}}
	fieldOK := true
	ls := &lineSplitter{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	sc.Split(ls.split)
	read := 0
	for sc.Scan() {
		read++
		line := read + ls.dropped
		text := sc.Text()
		cols := strings.Fields(text)
		if len(cols) == 0 {
			continue
		}
		if len(cols) != 3 {
			sp.Skipped++
			continue
		}

		v, ok := parseFinite(cols[2])
		if !ok {
			if o.strict {
				return nil, &RecordError{Line: line, Text: text, Wrapped: epr.ErrMalformedRecord}
			}
			o.logger.Debug("skipping malformed record", "line", line)
			sp.Skipped++
			continue
		}
		sp.Intensity = append(sp.Intensity, v)

		if fieldOK {
			f, ok := parseFinite(cols[1])
			if !ok {
				fieldOK = false
				continue
			}
			sp.Field = append(sp.Field, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read spectrum: %w", err)
	}
	if ls.dropped > 0 {
		o.logger.Debug("skipped overlong lines", "count", ls.dropped)
		sp.Skipped += ls.dropped
	}
	if !fieldOK {
		sp.Field = nil
	}
	return sp, nil
}

// ParseIntensity returns only the intensity column.
func ParseIntensity(r io.Reader, opts ...Option) ([]float64, error) {
	sp, err := ParseSpectrum(r, opts...)
	if err != nil {
		return nil, err
	}
	return sp.Intensity, nil
}

func LoadFile(path string, opts ...Option) (*Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sp, err := ParseSpectrum(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sp, nil
}
