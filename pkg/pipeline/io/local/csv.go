package local

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

// ReadRecordsCSV reads a CSV with a header row into records keyed by the normalized header
// names. Every cell becomes a text value; list cells stay "|"-delimited text for the field
// cleaner to split. A column required by the contract but absent from the header is fatal.
func ReadRecordsCSV(r io.Reader, contract schema.Contract) ([]*record.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, contract.Check(nil)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := contract.Check(header); err != nil {
		return nil, err
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = schema.NormalizeColumn(h)
	}

	var out []*record.Record
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		row := record.New()
		for i, col := range cols {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row.Set(col, record.Text(rec[i]))
			} else {
				row.Set(col, record.Text(""))
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteRecordsCSV writes records using header as the column order. List values are joined
// with record.ListSeparator; null values are written as empty cells.
func WriteRecordsCSV(w io.Writer, header []string, rows []*record.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	buf := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			buf[i] = r.Str(col)
		}
		if err := cw.Write(buf); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
