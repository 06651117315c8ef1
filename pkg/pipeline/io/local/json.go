package local

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

// ReadRecordsJSON reads a JSON array of objects. Object key order is preserved so that output
// columns follow the scrape order.
func ReadRecordsJSON(r io.Reader, contract schema.Contract) ([]*record.Record, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var out []*record.Record
	var fields []string
	seen := make(map[string]struct{})
	for dec.More() {
		row, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("read object %d: %w", len(out)+1, err)
		}
		for _, k := range row.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fields = append(fields, k)
			}
		}
		out = append(out, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if err := contract.CheckFields(fields); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) (*record.Record, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	row := record.New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var v record.Value
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		row.Set(schema.NormalizeColumn(key), v)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return row, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("read json: expected %q, got %v", want, tok)
	}
	return nil
}

// WriteRecordsJSON writes records as an indented JSON array, one object per record.
func WriteRecordsJSON(w io.Writer, rows []*record.Record) error {
	if rows == nil {
		rows = []*record.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rows)
}

// ReadRecordsFile reads a .json or .csv file, picking the format by extension.
func ReadRecordsFile(path string, contract schema.Contract) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadRecordsJSON(f, contract)
	}
	return ReadRecordsCSV(f, contract)
}

// WriteFile creates path and streams content into it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
