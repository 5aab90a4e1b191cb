// Package rows loads billing extracts from CSV and XLSX files into engine
// rows. Loaders only locate columns and copy cell text; validation and
// amount parsing stay in the engine so bad cells become anomalies.
package rows

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JaimeStill/labrecon/internal/engine"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported row file format")
	ErrMissingColumn     = errors.New("required column missing")
	ErrNoHeader          = errors.New("no header row")
)

type column int

const (
	colPatient column = iota
	colProcedure
	colAmount
	colUnits
	columnCount
)

var columnNames = [columnCount]string{"patient", "procedure", "amount", "units"}

// headers lists the accepted header labels per column in folded form.
var headers = map[string]column{
	"PATIENT":          colPatient,
	"PATIENT NAME":     colPatient,
	"PACIENTE":         colPatient,
	"NOME":             colPatient,
	"NOME DO PACIENTE": colPatient,
	"PROCEDURE":        colProcedure,
	"PROCEDIMENTO":     colProcedure,
	"EXAM":             colProcedure,
	"EXAME":            colProcedure,
	"AMOUNT":           colAmount,
	"VALUE":            colAmount,
	"VALOR":            colAmount,
	"VALOR R":          colAmount,
	"UNITS":            colUnits,
	"UNITCOUNT":        colUnits,
	"UNIT COUNT":       colUnits,
	"QUANTIDADE":       colUnits,
	"QTD":              colUnits,
	"QTDE":             colUnits,
}

// layout maps columns to cell positions; -1 marks an absent column.
type layout [columnCount]int

func newLayout(header []string) (layout, error) {
	var l layout
	for i := range l {
		l[i] = -1
	}
	for i, h := range header {
		if c, ok := headers[engine.Fold(h)]; ok && l[c] < 0 {
			l[c] = i
		}
	}
	for _, c := range []column{colPatient, colProcedure, colAmount} {
		if l[c] < 0 {
			return l, fmt.Errorf("%w: %s", ErrMissingColumn, columnNames[c])
		}
	}
	return l, nil
}

func (l layout) cell(record []string, c column) string {
	i := l[c]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (l layout) row(record []string) engine.RawRow {
	return engine.RawRow{
		Patient:   l.cell(record, colPatient),
		Procedure: l.cell(record, colProcedure),
		Amount:    engine.RawAmount(l.cell(record, colAmount)),
		UnitCount: parseUnits(l.cell(record, colUnits)),
	}
}

// parseUnits reads a unit count. Blank means one unit. Text that is not a
// whole number becomes -1 so the engine reports it as bad_unit_count.
func parseUnits(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return -1
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// fromRecords turns a header record plus data records into rows. Leading
// blank records are skipped before the header, blank data records are
// dropped. lines holds the file line of each record; nil means record i sits
// on line i+1.
func fromRecords(records [][]string, lines []int, source engine.Source) ([]engine.RawRow, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, ErrNoHeader
	}

	l, err := newLayout(records[start])
	if err != nil {
		return nil, err
	}

	out := make([]engine.RawRow, 0, len(records)-start-1)
	for i := start + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		r := l.row(records[i])
		r.Source = source
		r.Line = i + 1
		if lines != nil {
			r.Line = lines[i]
		}
		out = append(out, r)
	}
	return out, nil
}

// Load reads the rows of one side from a .csv or .xlsx file. sheet selects
// the XLSX worksheet; empty means the first one.
func Load(path string, source engine.Source, sheet string) ([]engine.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []engine.RawRow
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		rows, err = ReadCSV(f, source)
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(f, source, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
