package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportCSV writes one probe's samples as CSV: a header row of "t" plus one
// column per dimension, then one row per sample.
func ExportCSV(w io.Writer, probe string, samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples for probe %q", probe)
	}

	cw := csv.NewWriter(w)
	dims := len(samples[0].Data)
	header := make([]string, 1+dims)
	header[0] = "t"
	for i := 0; i < dims; i++ {
		header[i+1] = fmt.Sprintf("%s[%d]", probe, i)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 1+dims)
	for _, s := range samples {
		if len(s.Data) != dims {
			return fmt.Errorf("probe %q: ragged sample at t=%g", probe, s.Time)
		}
		row[0] = strconv.FormatFloat(s.Time, 'g', -1, 64)
		for i, v := range s.Data {
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
