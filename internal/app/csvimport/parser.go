// Package csvimport reads exam questions from uploaded CSV files.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

// Record is one question read from a CSV row
type Record struct {
	Content string
	Options []string
	Answer  string
}

// Row is a CSV data row keyed by column name. Columns without a header name are keyed
// positionally as "_<index>".
type Row struct {
	Number int // 1-based line of the data row, header excluded
	Fields map[string]string
	// Plain holds the same line split on every comma, quotes ignored. Nil for rows
	// whose quoted fields span several lines.
	Plain map[string]string
}

// Get returns the trimmed value of a column, or "" if absent
func (r Row) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// RowAdapter turns a raw row into a question record
type RowAdapter interface {
	Adapt(row Row) (Record, error)
}

// ErrSkipRow is returned by adapters for rows that carry no question
var ErrSkipRow = errors.New("row skipped")

// Parser streams question records out of a CSV document
type Parser struct {
	adapter RowAdapter
	logger  zerolog.Logger
}

// NewParser creates a Parser. A nil adapter means LegacySplitAdapter.
func NewParser(adapter RowAdapter, logger zerolog.Logger) *Parser {
	if adapter == nil {
		adapter = LegacySplitAdapter{}
	}
	return &Parser{adapter: adapter, logger: logger}
}

// Records lazily yields the records of r. Rows the adapter rejects are logged and
// skipped; only a failure to read the stream is yielded as an error, after which
// iteration stops. A row never extends past its own line unless a quoted field
// legitimately continues onto the next ones.
func (p *Parser) Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		lines := &recordReader{br: bufio.NewReader(r)}

		var names []string
		for names == nil {
			text, _, err := lines.next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("failed to read csv header: %w", err))
				return
			}
			header, err := splitRecord(text)
			if err != nil {
				yield(Record{}, fmt.Errorf("failed to read csv header: %w", err))
				return
			}
			if header != nil {
				names = columnNames(header)
			}
		}

		for line := 1; ; {
			text, multiline, err := lines.next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("failed to read csv row %d: %w", line, err))
				return
			}

			raw, err := splitRecord(text)
			if err != nil {
				p.logger.Warn().Err(err).Int("row", line).Msg("Skipping unreadable csv row")
				line++
				continue
			}
			if raw == nil {
				continue
			}

			row := Row{Number: line, Fields: make(map[string]string, len(raw))}
			for i, value := range raw {
				row.Fields[nameAt(names, i)] = value
			}
			if !multiline {
				plain := strings.Split(strings.TrimRight(text, "\r\n"), ",")
				row.Plain = make(map[string]string, len(plain))
				for i, value := range plain {
					row.Plain[nameAt(names, i)] = value
				}
			}
			line++

			rec, err := p.adapter.Adapt(row)
			if err != nil {
				p.logger.Warn().Err(err).Int("row", row.Number).Msg("Skipping csv row")
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// ParseAll collects every record of r. It fails with ErrEmptyQuestionSet when no row
// produced a question.
func (p *Parser) ParseAll(r io.Reader) ([]Record, error) {
	var records []Record
	for rec, err := range p.Records(r) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, apperrors.ErrEmptyQuestionSet
	}
	p.logger.Debug().Int("questions", len(records)).Msg("Parsed questions from csv")
	return records, nil
}

func columnNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "" {
			h = positional(i)
		}
		names[i] = h
	}
	return names
}

func nameAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return positional(i)
}

func positional(i int) string {
	return "_" + strconv.Itoa(i)
}

// maxRecordLines caps how many physical lines one quoted field may span
const maxRecordLines = 32

// recordReader cuts a CSV stream into record texts. A record is a single physical line
// unless its quotes are unbalanced, in which case following lines are joined until the
// quotes balance and the joined text parses as exactly one strict CSV record. When that
// fails the first line stands alone and the rest are read again as records of their own.
type recordReader struct {
	br      *bufio.Reader
	pending []string
}

func (rr *recordReader) line() (string, error) {
	if len(rr.pending) > 0 {
		l := rr.pending[0]
		rr.pending = rr.pending[1:]
		return l, nil
	}
	l, err := rr.br.ReadString('\n')
	if l != "" && errors.Is(err, io.EOF) {
		return l, nil
	}
	return l, err
}

// next returns the text of the next record and whether it spans several lines
func (rr *recordReader) next() (string, bool, error) {
	first, err := rr.line()
	if err != nil {
		return "", false, err
	}

	text := first
	lines := []string{first}
	for strings.Count(text, `"`)%2 == 1 && len(lines) < maxRecordLines {
		l, err := rr.line()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", false, err
		}
		lines = append(lines, l)
		text += l
	}

	if len(lines) == 1 {
		return first, false, nil
	}
	if strings.Count(text, `"`)%2 == 0 && strictRecord(text) {
		return text, true, nil
	}
	rr.pending = append(append([]string{}, lines[1:]...), rr.pending...)
	return first, false, nil
}

// strictRecord reports whether text is exactly one well-formed CSV record
func strictRecord(text string) bool {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return false
	}
	_, err := reader.Read()
	return errors.Is(err, io.EOF)
}

// splitRecord parses one record text leniently. A blank line yields nil fields.
func splitRecord(text string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	fields, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return fields, err
}
