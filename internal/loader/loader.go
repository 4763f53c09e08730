package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schoolhealth/schoolhealth/internal/school"
	"github.com/schoolhealth/schoolhealth/internal/watch"
)

// FieldCount is the number of fields every data line must have.
const FieldCount = 5

// ErrFieldCount is wrapped by Warnings for lines with the wrong field count.
var ErrFieldCount = errors.New("incorrect field count")

// Warning describes one skipped input line.
type Warning struct {
	Line int    // 1-based line number in the file
	Text string // raw line content
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s: %v", w.Line, w.Text, w.Err)
}

// Result is the outcome of one load.
type Result struct {
	Schools  []school.School
	Warnings []Warning
}

// Load opens path and parses it. Each skipped line is logged at warn level.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}
	for _, w := range res.Warnings {
		slog.Warn("loader: skipping line", "path", path, "line", w.Line, "text", w.Text, "err", w.Err)
	}
	slog.Info("loader: loaded schools", "path", path, "schools", len(res.Schools), "skipped", len(res.Warnings))
	return res, nil
}

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Parse reads records from r. The first line is treated as the header and
// skipped. Every line is decoded on its own, so a malformed line (including
// one with an unterminated quote) becomes a Warning without affecting the
// lines after it. Only I/O errors are returned.
func Parse(r io.Reader) (*Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	res := &Result{Schools: []school.School{}}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 || strings.TrimSpace(text) == "" {
			continue
		}

		rec, err := splitLine(text)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Line: line, Text: text, Err: err})
			continue
		}
		if len(rec) != FieldCount {
			res.Warnings = append(res.Warnings, Warning{
				Line: line,
				Text: text,
				Err:  fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(rec), FieldCount),
			})
			continue
		}

		s, err := school.New(rec[0], rec[1], rec[2], rec[3], rec[4])
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Line: line, Text: text, Err: err})
			continue
		}
		res.Schools = append(res.Schools, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// splitLine decodes one comma-separated line. Quoted fields may contain
// commas; a quote left open only consumes the rest of this line.
func splitLine(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rec, err := cr.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, pe.Err
		}
		return nil, err
	}
	return rec, nil
}

// Watch reloads path every time it changes and passes each successful load
// to onChange. A failed reload is logged and onChange is not called. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Result)) error {
	return watch.File(ctx, path, func() {
		res, err := Load(path)
		if err != nil {
			slog.Error("loader: reload failed, keeping previous data", "path", path, "err", err)
			return
		}
		onChange(res)
	})
}
