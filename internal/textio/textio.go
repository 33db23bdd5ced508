// Package textio reads and writes the line-aligned unit files shared by all
// pipeline stages. Line position is the only join key between files, so
// every writer emits exactly one line per unit and every reader returns
// exactly one unit per line.
package textio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// unitKeys are the object fields accepted as the unit text, in order.
var unitKeys = []string{"prompt", "text", "translation"}

// ReadLines returns the raw lines of path. A trailing newline at EOF does
// not produce an extra empty line; CRLF endings are normalised.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// DecodeUnit extracts the unit text from one line. JSON arrays yield their
// first element, JSON objects their prompt/text/translation field, and any
// other line is taken verbatim.
func DecodeUnit(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') || !gjson.Valid(trimmed) {
		return line
	}
	res := gjson.Parse(trimmed)
	if res.IsArray() {
		items := res.Array()
		if len(items) == 0 {
			return ""
		}
		return items[0].String()
	}
	for _, key := range unitKeys {
		if v := res.Get(key); v.Exists() {
			return v.String()
		}
	}
	return line
}

// ReadUnits reads a unit file, one unit per line.
func ReadUnits(path string) ([]string, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	units := make([]string, len(lines))
	for i, line := range lines {
		units[i] = DecodeUnit(line)
	}
	return units, nil
}

// CountUnits returns the number of units in path.
func CountUnits(path string) (int, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// EncodeUnit renders text as a single-element JSON array without HTML
// escaping, so embedded newlines never split a unit across lines.
func EncodeUnit(text string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string{text}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteUnits replaces path with one encoded line per unit.
func WriteUnits(path string, units []string) error {
	return WriteFile(path, func(w io.Writer) error {
		for i, u := range units {
			line, err := EncodeUnit(u)
			if err != nil {
				return fmt.Errorf("failed to encode unit %d: %w", i, err)
			}
			if _, err := w.Write(line); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFile writes path through a temporary file in the same directory and
// renames it into place, creating parent directories as needed.
func WriteFile(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
