package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

var cellSeparator = regexp.MustCompile(`\s{2,}|\t|\s*\|\s*`)

// extractPDF pulls per-page plain text from a digital PDF claim form, applies
// the shared text pipeline, and recovers the benefits table from table-like
// text rows. Unreadable bytes abort; per-page text failures are soft.
func (e *Extractor) extractPDF(data []byte, claim *domain.ExtractedClaim) error {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening pdf: %w", err)
	}

	var fullText strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			claim.AddError(fmt.Sprintf("pdf page %d: %v", i, err))
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString("\n")
	}

	text := fullText.String()
	extractFormText(text, claim)

	if tables := tablesFromText(text); len(tables) > 0 {
		claim.BenefitLines = parseBenefitTables(tables)
	}

	return nil
}

// tablesFromText reconstructs tables from text lines. A table row is a line
// that splits into at least four cells on pipes, tabs, or runs of two or more
// spaces; consecutive rows of that shape form one table.
func tablesFromText(text string) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitTableRow(line)
		if len(cells) >= 4 {
			current = append(current, cells)
		} else {
			flush()
		}
	}
	flush()

	return tables
}

func splitTableRow(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), "|")
	if line == "" {
		return nil
	}
	parts := cellSeparator.Split(line, -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}
