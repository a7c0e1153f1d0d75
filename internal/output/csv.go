// Package output writes transform rows to CSV files.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// CSVFile appends rows to a CSV file. The header is written only when the file is new or empty,
// so consecutive runs over different block files extend the same output.
type CSVFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

func OpenCSV(path string, header []string) (*CSVFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	c := &CSVFile{path: path, f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := c.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header of %s: %w", path, err)
		}
	}
	return c, nil
}

func (c *CSVFile) Path() string { return c.path }

// Rows is the number of rows written since open.
func (c *CSVFile) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

func (c *CSVFile) Write(values []any) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = FormatValue(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	c.rows++
	return nil
}

func (c *CSVFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// FormatValue renders a row value as a CSV field.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
