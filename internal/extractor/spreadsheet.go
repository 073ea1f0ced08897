package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// extractXLSX handles Excel claim workbooks. Every sheet is attempted in two
// independent interpretations:
//
//	(a) key-value rows: column A = label, column B = value
//	(b) columnar layout: header row + one benefit line per data row
//
// A sheet only contributes benefit lines if its header carries an amount
// column; key-value matches never overwrite earlier values.
func (e *Extractor) extractXLSX(data []byte, claim *domain.ExtractedClaim) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			claim.AddError(fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		extractKVRows(rows, claim)

		if lines := parseBenefitTables([][][]string{rows}); len(lines) > 0 {
			claim.BenefitLines = append(claim.BenefitLines, lines...)
		}
	}

	return nil
}

// extractCSV handles delimited claim exports. CSV is almost always columnar
// benefit data, but single-claim exports use key-value rows, so both
// interpretations run.
func (e *Extractor) extractCSV(data []byte, claim *domain.ExtractedClaim) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if lines := parseBenefitTables([][][]string{rows}); len(lines) > 0 {
		claim.BenefitLines = append(claim.BenefitLines, lines...)
	}
	extractKVRows(rows, claim)

	return nil
}

// extractKVRows applies the key-value interpretation to every row with at
// least a label and a value cell.
func extractKVRows(rows [][]string, claim *domain.ExtractedClaim) {
	for _, row := range rows {
		if len(row) >= 2 {
			mapKVPair(row[0], row[1], claim)
		}
	}
}
