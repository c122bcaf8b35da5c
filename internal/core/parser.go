package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RowReader lazily reads customer rows from a CSV stream with a header line.
// Columns are matched by name, case-insensitively, in any order; the tags
// column is optional and unknown columns are ignored.
type RowReader struct {
	r   *csv.Reader
	pos [numColumns]int // header position of each canonical column, -1 if absent
}

// NewRowReader reads the header from r. It fails with ErrParse when the
// stream is empty, the header is malformed, or a required column is missing.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // every record must match the header width
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrParse, err)
	}

	idx := MakeHeaderIndex(header)
	rr := &RowReader{r: cr}
	var missing []string
	for col, name := range Columns {
		p, ok := idx[name]
		if !ok {
			p = -1
		}
		rr.pos[col] = p
	}
	for _, col := range requiredColumns {
		if rr.pos[col] < 0 {
			missing = append(missing, Columns[col])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrParse, strings.Join(missing, ", "))
	}
	return rr, nil
}

// MakeHeaderIndex maps cleaned, lower-cased header names to positions. The
// first occurrence of a repeated name wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanHeader(h))
		if _, dup := idx[key]; dup || key == "" {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanHeader strips spreadsheet export artifacts from a header cell:
// surrounding whitespace, an Excel formula wrapper (="Email") and stray
// quotes.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else {
		s = strings.TrimPrefix(s, "=")
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// Next returns the next row in canonical column order.
//
// It returns io.EOF at the end of the stream and a *RowFormatError for a
// record that is not valid CSV; reading may continue after either kind of
// row error. Any other error is an ErrParse and ends the stream.
func (rr *RowReader) Next() (RawRow, error) {
	record, err := rr.r.Read()
	if err == io.EOF {
		return RawRow{}, io.EOF
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return RawRow{Line: pe.StartLine}, &RowFormatError{Line: pe.StartLine, Err: pe.Err}
	}
	if err != nil {
		return RawRow{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	line, _ := rr.r.FieldPos(0)
	fields := make([]string, numColumns)
	for col, p := range rr.pos {
		if p >= 0 && p < len(record) {
			fields[col] = strings.ToValidUTF8(record[p], "\uFFFD")
		}
	}
	return RawRow{Line: line, Fields: fields}, nil
}
