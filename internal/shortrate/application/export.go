package application

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WritePathsCSV writes one path per row with no header and no index column,
// each value in the shortest form that parses back to the same float64.
func WritePathsCSV(w io.Writer, paths [][]float64) error {
	cw := csv.NewWriter(w)
	var record []string
	for _, path := range paths {
		record = record[:0]
		for _, v := range path {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
