package regions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Header returns the column names of the text export: "ID" followed by
// "Int0", "Int1", ... for each channel.
func (t *Table) Header() []string {
	h := make([]string, 0, t.Channels+1)
	h = append(h, "ID")
	for c := 0; c < t.Channels; c++ {
		h = append(h, fmt.Sprintf("Int%d", c))
	}
	return h
}

// WriteCSV writes the table as tab-separated text with a header row and no
// index column. Means are formatted with four decimals.
func WriteCSV(w io.Writer, t *Table) error {
	if err := t.validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, t.Channels+1)
	for _, r := range t.Rows {
		record[0] = strconv.FormatUint(uint64(r.ID), 10)
		for c, m := range r.Means {
			record[c+1] = strconv.FormatFloat(m, 'f', 4, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write region %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
