package rows

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/JaimeStill/labrecon/internal/engine"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a delimited extract. The delimiter is detected from the
// header line (semicolon, tab or comma) and input that is not valid UTF-8 is
// decoded as Windows-1252, the usual spreadsheet export encoding.
func ReadCSV(r io.Reader, source engine.Source) ([]engine.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		if data, err = charmap.Windows1252.NewDecoder().Bytes(data); err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = cr.Comma != '\t'

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return fromRecords(records, lines, source)
}

// detectDelimiter picks the most frequent candidate on the first non-blank
// line.
func detectDelimiter(data []byte) rune {
	var line []byte
	for len(data) > 0 {
		line, data, _ = bytes.Cut(data, []byte{'\n'})
		if len(bytes.TrimSpace(line)) > 0 {
			break
		}
	}

	best, count := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > count {
			best, count = d, n
		}
	}
	return best
}
