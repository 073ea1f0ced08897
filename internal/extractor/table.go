package extractor

import (
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// mapBenefitColumns matches header cells against the column-name variant
// lists and returns logical field -> column index.
func mapBenefitColumns(header []string) map[string]int {
	colMap := make(map[string]int)
	for field, variants := range BenefitColumnVariants {
		for i, cell := range header {
			h := strings.ToLower(strings.TrimSpace(cell))
			if h == "" {
				continue
			}
			matched := false
			for _, v := range variants {
				if strings.Contains(h, v) {
					matched = true
					break
				}
			}
			if matched {
				colMap[field] = i
				break
			}
		}
	}
	return colMap
}

// isBenefitTable reports whether a column mapping qualifies as the Section 14
// benefits table: it must carry at least one recognizable amount column.
func isBenefitTable(colMap map[string]int) bool {
	_, hasClaim := colMap["claim_amount"]
	_, hasBill := colMap["bill_amount"]
	return hasClaim || hasBill
}

// parseBenefitTables parses raw tables (header row + data rows) into benefit
// lines. Tables without an amount column are skipped, as are empty rows and
// "Total" summary rows.
func parseBenefitTables(tables [][][]string) []domain.BenefitLine {
	var lines []domain.BenefitLine

	for _, table := range tables {
		if len(table) < 2 {
			continue
		}
		colMap := mapBenefitColumns(table[0])
		if !isBenefitTable(colMap) {
			continue
		}
		for _, row := range table[1:] {
			if line, ok := parseBenefitRow(colMap, row); ok {
				lines = append(lines, line)
			}
		}
	}

	return lines
}

// parseBenefitRow converts one data row into a BenefitLine using the column
// mapping. It returns ok=false for blank rows, summary rows, and rows where
// nothing parsed.
func parseBenefitRow(colMap map[string]int, row []string) (domain.BenefitLine, bool) {
	var line domain.BenefitLine

	cells := make([]string, len(row))
	empty := true
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			empty = false
		}
		if strings.Contains(strings.ToLower(cells[i]), "total") {
			return line, false
		}
	}
	if empty {
		return line, false
	}

	for field, idx := range colMap {
		if idx >= len(cells) || cells[idx] == "" {
			continue
		}
		val := cells[idx]
		switch field {
		case "admission_date":
			line.AdmissionDate = parseDate(val)
		case "discharge_date":
			line.DischargeDate = parseDate(val)
		case "case_code":
			line.CaseCode = val
		case "icd11_procedure_code":
			line.ICD11ProcedureCode = val
		case "description":
			line.Description = val
		case "preauth_no":
			line.PreauthNo = val
		case "bill_amount":
			line.BillAmount = parseAmount(val)
		case "claim_amount":
			line.ClaimAmount = parseAmount(val)
		}
	}

	if line.Empty() {
		return line, false
	}
	return line, true
}
