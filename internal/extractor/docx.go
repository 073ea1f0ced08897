package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// extractDOCX reads word/document.xml out of the OOXML container and walks
// its token stream, collecting paragraph text and <w:tbl> tables. Paragraphs
// go through the shared text pipeline; tables go through the benefit-table
// parser and, row-wise, the key-value mapper (forms often carry header fields
// in two-column tables).
func (e *Extractor) extractDOCX(data []byte, claim *domain.ExtractedClaim) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening docx container: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return errors.New("docx container has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return fmt.Errorf("reading document.xml: %w", err)
	}
	defer rc.Close()

	text, tables, err := walkDocument(rc)
	if err != nil {
		return fmt.Errorf("parsing document.xml: %w", err)
	}

	extractFormText(text, claim)

	if len(tables) > 0 {
		claim.BenefitLines = parseBenefitTables(tables)
		for _, table := range tables {
			for _, row := range table {
				if len(row) >= 2 {
					mapKVPair(row[0], row[1], claim)
				}
			}
		}
	}

	return nil
}

// walkDocument streams the OOXML body, returning paragraph text (outside
// tables, newline-separated) and every table as rows of trimmed cell text.
func walkDocument(r io.Reader) (string, [][][]string, error) {
	dec := xml.NewDecoder(r)

	var text strings.Builder
	var tables [][][]string

	var table [][]string
	var row []string
	var cell strings.Builder
	var para strings.Builder
	tableDepth := 0
	inCell := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					inCell = true
					cell.Reset()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth == 1 && len(table) > 0 {
					tables = append(tables, table)
				}
				tableDepth--
			case "tr":
				if tableDepth == 1 && len(row) > 0 {
					table = append(table, row)
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
					inCell = false
				}
			case "p":
				if tableDepth == 0 {
					text.WriteString(para.String())
					text.WriteString("\n")
					para.Reset()
				} else if inCell {
					cell.WriteString(" ")
				}
			}
		case xml.CharData:
			if inCell {
				cell.Write(t)
			} else if tableDepth == 0 {
				para.Write(t)
			}
		}
	}

	return text.String(), tables, nil
}
