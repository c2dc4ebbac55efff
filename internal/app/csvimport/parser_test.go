package csvimport

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

func newTestParser() *Parser {
	return NewParser(nil, zerolog.Nop())
}

func TestParseAllQuotedOptions(t *testing.T) {
	input := "content,options,answer\n" +
		`Q1,"[""A"",""B""]",A` + "\n" +
		`Q2,"[""C""]",` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	want := []Record{
		{Content: "Q1", Options: []string{"A", "B"}, Answer: "A"},
		{Content: "Q2", Options: []string{"C"}, Answer: ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("got %+v, want %+v", records, want)
	}
}

func TestParseAllRejoinsSplitOptions(t *testing.T) {
	// The unquoted array is split by the csv reader into options, _3 and _4.
	input := "content,answer,options\n" +
		`What is 2+2?,4,["3", "4", "5"]` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := records[0].Options; !reflect.DeepEqual(got, []string{"3", "4", "5"}) {
		t.Errorf("options = %q", got)
	}
	if records[0].Answer != "4" {
		t.Errorf("answer = %q", records[0].Answer)
	}
}

func TestParseAllRepairsUnspacedLegacyArray(t *testing.T) {
	// Without spaces the csv reader treats "B" as a quoted field and runs "C"] to the end of the line.
	input := "content,answer,options\n" +
		`Q1,A,["A","B","C"]` + "\n" +
		`Q2,D,"[""D"",""E""]"` + "\n" +
		`Q3,F,["F", "G"]` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	want := []Record{
		{Content: "Q1", Options: []string{"A", "B", "C"}, Answer: "A"},
		{Content: "Q2", Options: []string{"D", "E"}, Answer: "D"},
		{Content: "Q3", Options: []string{"F", "G"}, Answer: "F"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("got %+v, want %+v", records, want)
	}
}

func TestParseAllStrayQuoteDoesNotSwallowLaterRows(t *testing.T) {
	input := "content,answer,options\n" +
		`Bad,A,["A"B"]` + "\n" +
		`Q2,B,"[""B""]"` + "\n" +
		`Q3,C,["C", "D"]` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	var contents []string
	for _, r := range records {
		contents = append(contents, r.Content)
	}
	if !reflect.DeepEqual(contents, []string{"Q2", "Q3"}) {
		t.Errorf("contents = %q", contents)
	}
}

func TestParseAllQuotedFieldAcrossLines(t *testing.T) {
	input := "content,answer,options\n" +
		`"Line one` + "\n" +
		`line two",A,"[""A""]"` + "\n" +
		`Q2,B,"[""B""]"` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Content != "Line one\nline two" || records[1].Content != "Q2" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestParseAllSkipsBadRowsAndKeepsOrder(t *testing.T) {
	input := "content,options,answer\n" +
		`First,"[""A""]",A` + "\n" +
		`Broken,"[""A"" ""B""]",A` + "\n" +
		`,"[""A""]",A` + "\n" +
		`Third,"[""X"",""Y""]",Y` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	var contents []string
	for _, r := range records {
		contents = append(contents, r.Content)
	}
	if !reflect.DeepEqual(contents, []string{"First", "Third"}) {
		t.Errorf("contents = %q", contents)
	}
}

func TestParseAllEveryRowInvalid(t *testing.T) {
	input := "content,options,answer\n" +
		`Q1,"[""A"" ""B""]",A` + "\n" +
		`Q2,"{not json}",B` + "\n"

	_, err := newTestParser().ParseAll(strings.NewReader(input))
	if !errors.Is(err, apperrors.ErrEmptyQuestionSet) {
		t.Errorf("got %v, want ErrEmptyQuestionSet", err)
	}
}

func TestParseAllEmptyInput(t *testing.T) {
	for _, input := range []string{"", "content,options,answer\n"} {
		_, err := newTestParser().ParseAll(strings.NewReader(input))
		if !errors.Is(err, apperrors.ErrEmptyQuestionSet) {
			t.Errorf("input %q: got %v, want ErrEmptyQuestionSet", input, err)
		}
	}
}

func TestParseAllHeaderIsCaseInsensitive(t *testing.T) {
	input := "\ufeffContent , OPTIONS,Answer\n" +
		`Q1,"[""A""]",A` + "\n"

	records, err := newTestParser().ParseAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if records[0].Content != "Q1" || records[0].Answer != "A" {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestRecordsStopsWhenConsumerStops(t *testing.T) {
	input := "content,options\n" +
		`Q1,"[""A""]"` + "\n" +
		`Q2,"[""B""]"` + "\n" +
		`Q3,"[""C""]"` + "\n"

	var seen int
	for rec, err := range newTestParser().Records(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen++
		if rec.Content == "Q2" {
			break
		}
	}
	if seen != 2 {
		t.Errorf("consumed %d records, want 2", seen)
	}
}

type upperAdapter struct{}

func (upperAdapter) Adapt(row Row) (Record, error) {
	return Record{Content: strings.ToUpper(row.Get("content")), Options: []string{}}, nil
}

func TestParserUsesCustomAdapter(t *testing.T) {
	records, err := NewParser(upperAdapter{}, zerolog.Nop()).ParseAll(strings.NewReader("content\nhello\n"))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if records[0].Content != "HELLO" {
		t.Errorf("custom adapter not used: %+v", records[0])
	}
}

func TestRepairOptions(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   []string
		ok     bool
	}{
		{"already valid", map[string]string{"options": `["A","B"]`}, []string{"A", "B"}, true},
		{"missing brackets", map[string]string{"options": `"A", "B"`}, []string{"A", "B"}, true},
		{"missing closing bracket", map[string]string{"options": `["A"`}, []string{"A"}, true},
		{"escaped quotes", map[string]string{"options": `[\"A\",\"B\"]`}, []string{"A", "B"}, true},
		{"surrounding whitespace", map[string]string{"options": `  ["A"]  `}, []string{"A"}, true},
		{
			"split across continuation columns in order",
			map[string]string{"options": `["A"`, "_3": `"B"`, "_4": "", "_5": `"C"]`},
			[]string{"A", "B", "C"},
			true,
		},
		{
			"columns past _7 are ignored",
			map[string]string{"options": `["A"`, "_7": `"B"]`, "_8": `"C"]`},
			[]string{"A", "B"},
			true,
		},
		{"empty options", map[string]string{}, []string{}, true},
		{"not json", map[string]string{"options": `A, B`}, nil, false},
		{"non string items", map[string]string{"options": `[1, 2]`}, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RepairOptions(tc.fields)
			if tc.ok != (err == nil) {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
			if tc.ok && !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
