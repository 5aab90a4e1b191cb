package rows

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/labrecon/internal/engine"
)

// ReadXLSX reads a worksheet of an XLSX workbook. Cell values are taken raw
// so numeric amounts keep their stored digits instead of the display format.
// GetRows keeps empty inner rows, so each row's Line is its sheet row.
func ReadXLSX(r io.Reader, source engine.Source, sheet string) ([]engine.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return fromRecords(records, nil, source)
}
