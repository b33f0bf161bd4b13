package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrUnreadableFile marks a file that could not be opened or probed at
// all. Callers skip such files with a warning; a single bad file never
// aborts an ingestion run.
var ErrUnreadableFile = errors.New("ingest: unreadable file")

// Encoding is the result of the text-encoding probe.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	// EncodingWindows1254 is the Turkish legacy codepage some exports
	// are written in.
	EncodingWindows1254
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectDelimiter inspects the first line of a file: semicolon when
// present (the dominant export format), otherwise comma.
func DetectDelimiter(firstLine string) rune {
	if len(firstLine) > 0 {
		for i := 0; i < len(firstLine); i++ {
			if firstLine[i] == ';' {
				return ';'
			}
		}
	}
	return ','
}

// DetectEncoding probes a byte sample: a UTF-8 BOM or valid UTF-8 means
// UTF-8, anything else falls back to windows-1254.
func DetectEncoding(sample []byte) Encoding {
	if bytes.HasPrefix(sample, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(sample) {
		return EncodingUTF8
	}
	return EncodingWindows1254
}

// RowReader streams records from a single delimited source file. The
// header row is consumed at open time; Read returns one record at a time
// so multi-gigabyte logs never get loaded into memory.
type RowReader struct {
	f        *os.File
	csv      *csv.Reader
	header   []string
	columns  ColumnMap
	Encoding Encoding
	Comma    rune
}

// OpenRows opens a delimited file, probes delimiter and encoding, and
// positions the reader after the header row. Returns ErrUnreadableFile
// (wrapped) when the file cannot be opened or has no header.
func OpenRows(path string) (*RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}

	br := bufio.NewReaderSize(f, 64*1024)
	sample, _ := br.Peek(4096)
	if len(sample) == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s: empty file", ErrUnreadableFile, path)
	}
	enc := DetectEncoding(sample)

	var r io.Reader = br
	if enc == EncodingWindows1254 {
		r = transform.NewReader(br, charmap.Windows1254.NewDecoder())
	} else if bytes.HasPrefix(sample, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	// Delimiter probe uses the first decoded line.
	lr := bufio.NewReaderSize(r, 64*1024)
	firstLine, err := lr.ReadString('\n')
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}
	comma := DetectDelimiter(firstLine)

	cr := csv.NewReader(io.MultiReader(bytes.NewReader([]byte(firstLine)), lr))
	cr.Comma = comma
	cr.FieldsPerRecord = -1 // malformed rows are handled per row, not fatally
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: no header: %v", ErrUnreadableFile, path, err)
	}

	return &RowReader{
		f:        f,
		csv:      cr,
		header:   header,
		columns:  ResolveColumns(header),
		Encoding: enc,
		Comma:    comma,
	}, nil
}

// Header returns the raw header row.
func (r *RowReader) Header() []string { return r.header }

// Columns returns the resolved semantic column mapping for this file.
func (r *RowReader) Columns() ColumnMap { return r.columns }

// Read returns the next record, io.EOF at end of file, or a per-row
// parse error that the caller records as a skip and moves past.
func (r *RowReader) Read() ([]string, error) {
	return r.csv.Read()
}

// Field returns the trimmed value of the given role in a record, or ""
// when the role is unresolved or the record is too short.
func (r *RowReader) Field(record []string, role Role) string {
	i, ok := r.columns[role]
	if !ok || i >= len(record) {
		return ""
	}
	return trimCell(record[i])
}

// Close releases the underlying file.
func (r *RowReader) Close() error { return r.f.Close() }

func trimCell(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\r' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
