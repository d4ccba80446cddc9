package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Column names every input table must carry.
const (
	ColTimestamp   = "timestamp"
	ColLocation    = "location"
	ColPH          = "ph"
	ColTurbidity   = "turbidity"
	ColTemperature = "temperature"
)

var requiredColumns = []string{ColTimestamp, ColLocation, ColPH, ColTurbidity, ColTemperature}

var (
	// ErrFileNotFound is returned by Load when the input path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrRowParse matches every *RowError via errors.Is.
	ErrRowParse = errors.New("invalid row")
)

// Options controls how the table is tokenised.
type Options struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune

	// Comment, if non-zero, marks lines to ignore when it is the first character.
	Comment rune
}

// Dataset is the outcome of one load.
type Dataset struct {
	Header  []string
	Records []types.Record
	Skipped []*RowError
}

// RowError describes one dropped row.
type RowError struct {
	Line  int
	Field string            // offending column; empty when the row could not be tokenised
	Row   map[string]string // raw values keyed by header name
	Err   error
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %q: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRowParse) true for any RowError.
func (e *RowError) Is(target error) bool { return target == ErrRowParse }

// Load opens path and parses it with Parse. The file is closed before Load
// returns on every path.
func Load(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loader: %w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	ds, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loader: %q: %w", path, err)
	}
	slog.Debug("loader: loaded", "path", path,
		"records", len(ds.Records), "skipped", len(ds.Skipped))
	return ds, nil
}

// Parse reads a header row followed by data rows from r.
// An input with no header at all yields an empty Dataset and no error.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	ds := &Dataset{}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	ds.Header = normaliseHeader(header)

	index := make(map[string]int, len(ds.Header))
	for i, name := range ds.Header {
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, col)
		}
	}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("read row: %w", err)
			}
			ds.skip(&RowError{Line: pe.StartLine, Row: rowMap(ds.Header, fields), Err: pe.Err})
			continue
		}
		line, _ := cr.FieldPos(0)

		rec, rerr := newRecord(ds.Header, index, fields)
		if rerr != nil {
			rerr.Line = line
			ds.skip(rerr)
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

func (ds *Dataset) skip(e *RowError) {
	ds.Skipped = append(ds.Skipped, e)
	slog.Warn("loader: skipping invalid row", "line", e.Line, "row", e.Row, "err", e)
}

// newRecord builds a Record from one tokenised row, or rejects it whole.
func newRecord(header []string, index map[string]int, fields []string) (types.Record, *RowError) {
	get := func(col string) (string, bool) {
		i := index[col]
		if i >= len(fields) {
			return "", false
		}
		return fields[i], true
	}

	var vals [3]float64
	for i, col := range []string{ColPH, ColTurbidity, ColTemperature} {
		raw, ok := get(col)
		if !ok {
			return types.Record{}, &RowError{Field: col, Row: rowMap(header, fields), Err: errors.New("value missing")}
		}
		v, err := parseMeasurement(raw)
		if err != nil {
			return types.Record{}, &RowError{Field: col, Row: rowMap(header, fields), Err: err}
		}
		vals[i] = v
	}

	ts, _ := get(ColTimestamp)
	loc, _ := get(ColLocation)
	rec := types.Record{
		Timestamp:   ts,
		Location:    loc,
		PH:          vals[0],
		Turbidity:   vals[1],
		Temperature: vals[2],
	}

	for i, name := range header {
		if i >= len(fields) || isRequired(name) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[name] = fields[i]
	}
	return rec, nil
}

// parseMeasurement converts one numeric field. Surrounding whitespace is
// ignored, hexadecimal notation is rejected, and underscores are accepted
// only between two digits ("1_000.5").
func parseMeasurement(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	body := strings.TrimLeft(s, "+-")
	if len(body) > 1 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	if strings.Contains(s, "_") {
		if !digitGrouped(s) {
			return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
		}
		s = strings.ReplaceAll(s, "_", "")
	}
	return strconv.ParseFloat(s, 64)
}

// digitGrouped reports whether every underscore in s sits between two digits.
func digitGrouped(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isRequired(name string) bool {
	for _, c := range requiredColumns {
		if c == name {
			return true
		}
	}
	return false
}

// normaliseHeader trims whitespace and a leading UTF-8 BOM from column names.
func normaliseHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}

func rowMap(header, fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for i, v := range fields {
		if i < len(header) {
			m[header[i]] = v
		}
	}
	return m
}
