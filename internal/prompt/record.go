package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/textio"
)

// Record is one line of a prompt file. ID is the unit index and must match
// the line position.
type Record struct {
	ID         int    `json:"id"`
	SourceLang string `json:"src_lang"`
	TargetLang string `json:"tgt_lang"`
	Source     string `json:"source"`
	Prompt     string `json:"prompt"`
}

// WriteRecords replaces path with one JSON object per record.
func WriteRecords(path string, records []Record) error {
	return textio.WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode prompt %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

// ReadRecords reads a prompt file. Lines that are not prompt objects (a
// bare JSON array or plain text) become records with only ID and Prompt
// set. An explicit id that differs from the line position is a
// consistency error.
func ReadRecords(path string) ([]Record, error) {
	lines, err := textio.ReadLines(path)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") && gjson.Get(trimmed, "prompt").Exists() {
			var r Record
			if err := json.Unmarshal([]byte(trimmed), &r); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
			}
			if !gjson.Get(trimmed, "id").Exists() {
				r.ID = i
			}
			if r.ID != i {
				return nil, fmt.Errorf("%w: %s:%d carries id %d", internal.ErrConsistency, path, i+1, r.ID)
			}
			records[i] = r
			continue
		}
		records[i] = Record{ID: i, Prompt: textio.DecodeUnit(line)}
	}
	return records, nil
}
