package csvimport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// legacyOptionColumns lists the option-bearing columns in concatenation order. The
// upstream export does not quote the options array, so its commas split it across the
// "options" column and the unnamed columns that follow the header.
var legacyOptionColumns = []string{"options", "_3", "_4", "_5", "_6", "_7"}

// LegacySplitAdapter reassembles the options array of the legacy question export
type LegacySplitAdapter struct{}

// Adapt implements RowAdapter
func (LegacySplitAdapter) Adapt(row Row) (Record, error) {
	content := row.Get("content")
	if content == "" {
		return Record{}, fmt.Errorf("%w: empty content", ErrSkipRow)
	}

	options, err := RepairOptions(row.Fields)
	if err != nil && unquotedArray(row.Plain) {
		// CSV quoting has mangled a bare ["A","B"] array; retry on the raw comma split
		if plain, plainErr := RepairOptions(row.Plain); plainErr == nil {
			options, err = plain, nil
		}
	}
	if err != nil {
		return Record{}, err
	}

	return Record{
		Content: content,
		Options: options,
		Answer:  row.Get("answer"),
	}, nil
}

func unquotedArray(plain map[string]string) bool {
	return strings.HasPrefix(strings.TrimSpace(plain["options"]), "[")
}

// RepairOptions joins the option-bearing fields and parses them as a JSON string array.
func RepairOptions(fields map[string]string) ([]string, error) {
	parts := make([]string, 0, len(legacyOptionColumns))
	for _, col := range legacyOptionColumns {
		if v := fields[col]; v != "" {
			parts = append(parts, v)
		}
	}

	repaired := strings.TrimSpace(strings.ReplaceAll(strings.Join(parts, ","), `\`, ""))
	if !strings.HasPrefix(repaired, "[") {
		repaired = "[" + repaired
	}
	if !strings.HasSuffix(repaired, "]") {
		repaired += "]"
	}

	var options []string
	if err := json.Unmarshal([]byte(repaired), &options); err != nil {
		return nil, fmt.Errorf("options %q are not a JSON string array: %w", repaired, err)
	}
	if options == nil {
		options = []string{}
	}
	return options, nil
}
