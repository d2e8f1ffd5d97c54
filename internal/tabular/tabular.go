// Package tabular reads report exports (CSV, TSV, XLSX) into header-plus-rows
// tables for the normalizer.
package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is one parsed report: a header row, data rows, and any key/value
// metadata found on a leading Brand Analytics style line.
type Table struct {
	Name   string            `json:"name"`
	Header []string          `json:"header"`
	Rows   [][]string        `json:"rows"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// DefaultIdentifier returns the ASIN declared in the metadata line, if any.
// Single-ASIN exports carry it there instead of in a column.
func (t *Table) DefaultIdentifier() string {
	if t == nil {
		return ""
	}
	for _, k := range []string{"asin_or_product", "asin"} {
		if v := t.Meta[k]; v != "" {
			return v
		}
	}
	return ""
}

// Options configures reading.
type Options struct {
	Delimiter  rune   // default ',' (or '\t' for .tsv/.txt files)
	SheetName  string // xlsx only; overrides SheetIndex
	SheetIndex int    // xlsx only
}

var metaPattern = regexp.MustCompile(`([A-Za-z0-9_][\w ]*?)\s*=\s*\["([^"]*)"\]`)

// ParseMeta parses a `Key=["Value"]` metadata line. Keys are lower-cased
// with spaces replaced by underscores. It returns nil when the line holds
// no such pairs.
func ParseMeta(line string) map[string]string {
	matches := metaPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	meta := make(map[string]string, len(matches))
	for _, m := range matches {
		key := strings.ToLower(strings.Join(strings.Fields(m[1]), "_"))
		meta[key] = m[2]
	}
	return meta
}

// ReadCSV parses a delimited export. A UTF-8 byte order mark is dropped and
// a leading metadata line is split off into Table.Meta.
func ReadCSV(ctx context.Context, r io.Reader, name string, opts Options) (*Table, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	t := &Table{Name: name}
	first, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, eris.Wrapf(err, "tabular: read %s", name)
	}
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if meta := ParseMeta(line); meta != nil {
		t.Meta = meta
		if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
			return nil, eris.Wrapf(err, "tabular: read %s metadata", name)
		}
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "tabular: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: read %s", name)
		}
		if t.Header == nil {
			t.Header = cleanHeader(record)
			continue
		}
		if blank(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if t.Header == nil {
		return nil, eris.Errorf("tabular: %s has no header row", name)
	}
	return t, nil
}

// ReadFile reads a report file, choosing the parser by extension.
func ReadFile(ctx context.Context, path string, opts Options) (*Table, error) {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, opts)
	case ".tsv", ".txt":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f, name, opts)
}

// Read parses a report from a stream, choosing the parser by the
// extension of name.
func Read(ctx context.Context, r io.Reader, name string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: read %s", name)
		}
		return ReadXLSXBytes(data, name, opts)
	case ".tsv", ".txt":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
	}
	return ReadCSV(ctx, r, name, opts)
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = strings.TrimSpace(strings.ReplaceAll(c, `"`, ""))
	}
	return out
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
