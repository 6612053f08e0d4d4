package records

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spigell/jobfit/internal/utils"
)

const utf8BOM = "\ufeff"

// Read loads a delimited table with a header row from path.
func Read(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}

	table, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode table %s: %w", path, err)
	}
	return table, nil
}

// Decode parses CSV with a header row. A leading UTF-8 BOM is ignored; short rows are
// padded with empty values and cells beyond the header are dropped.
func Decode(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", table.Len()+1, err)
		}

		rec := NewRecord()
		for i, col := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec.Set(col, value)
		}
		table.Append(rec)
	}

	return table, nil
}

// Encode writes the table as CSV with the union of columns as header.
func Encode(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	cols := t.Columns()
	if err := writer.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for _, rec := range t.Records {
		for i, col := range cols {
			row[i] = rec.Get(col)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Write replaces the file at path with the encoded table in a single rename.
func Write(path string, t *Table) error {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return fmt.Errorf("encode table %s: %w", path, err)
	}
	return utils.WriteFileAtomic(path, buf.Bytes())
}
