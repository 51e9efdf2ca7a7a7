package manifest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
)

// SplitURLs splits a manifest URL field on commas. Entries keep their
// surrounding whitespace so the stored inputs stay byte-identical to the
// manifest; callers trim before fetching.
func SplitURLs(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, ",")
}

// JoinURLs is the inverse of SplitURLs, used for storage and CSV output.
func JoinURLs(urls []string) string {
	return strings.Join(urls, ",")
}

// WriteResults writes the 4-column results CSV, one data row per
// ProductRow in the given order.
func WriteResults(w io.Writer, rows []entities.ProductRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.SNo),
			row.Name,
			JoinURLs(row.InputImageURLs),
			JoinURLs(row.OutputImageURLs),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
