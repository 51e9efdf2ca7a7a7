package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Header is the exact column sequence an uploaded manifest must declare.
var Header = []string{"S. No.", "Product Name", "Input Image Urls"}

// ResultHeader is the column sequence of the generated results CSV.
var ResultHeader = []string{"S. No.", "Product Name", "Input Image Urls", "Output Image Urls"}

// Validate checks an uploaded manifest against the expected format and
// returns a diagnostic describing the first violation, or "" when the
// manifest is acceptable. Malformed input is itself a diagnostic, never
// an error.
func Validate(r io.Reader) string {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Sprintf("An error occurred during validation: %v", err)
	}
	if line, _ := cr.FieldPos(0); line != 1 {
		// Blank line(s) before the header mean row 1 itself is empty.
		return fmt.Sprintf("Invalid CSV header format. Expected: %v, Found: []", Header)
	}
	if !equalFields(header, Header) {
		return fmt.Sprintf("Invalid CSV header format. Expected: %v, Found: %v", Header, header)
	}

	// Header is row 1, so the first data row is row 2. The reader skips
	// blank lines without reporting them, so track the physical line each
	// record should start on; a gap means an empty row was passed over,
	// and an empty row is a row without its 3 columns.
	nextLine := 2 + embeddedNewlines(header)
	for rowNumber := 2; ; rowNumber++ {
		row, err := cr.Read()
		if err == io.EOF {
			return ""
		}
		if err != nil {
			return fmt.Sprintf("An error occurred during validation: %v", err)
		}

		line, _ := cr.FieldPos(0)
		if line > nextLine {
			return fmt.Sprintf("Row %d must have exactly 3 columns.", rowNumber)
		}
		nextLine = line + 1 + embeddedNewlines(row)

		if len(row) != 3 {
			return fmt.Sprintf("Row %d must have exactly 3 columns.", rowNumber)
		}

		sNo, name, imageURLs := row[0], row[1], row[2]

		if !isDigits(sNo) {
			return fmt.Sprintf("Invalid 'S. No.' in row %d: %s", rowNumber, sNo)
		}

		if strings.TrimSpace(name) == "" {
			return fmt.Sprintf("Product Name cannot be empty in row %d.", rowNumber)
		}

		for _, raw := range strings.Split(imageURLs, ",") {
			trimmed := strings.TrimSpace(raw)
			u, err := url.Parse(trimmed)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Sprintf("Invalid URL in row %d: %s", rowNumber, trimmed)
			}
		}
	}
}

// embeddedNewlines counts newlines inside quoted field values, so a
// record spanning several physical lines is not mistaken for a gap.
func embeddedNewlines(record []string) int {
	n := 0
	for _, f := range record {
		n += strings.Count(f, "\n")
	}
	return n
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
