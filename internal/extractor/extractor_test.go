package extractor

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	_, err := New(testLogger()).Extract([]byte("data"), domain.Format("tiff"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtractCSV_KeyValueForm(t *testing.T) {
	doc := []byte("Provider ID,PRV-001\n" +
		"Provider Name,Nakuru County Hospital\n" +
		"Last Name,Wanjiku\n" +
		"First Name,Grace\n" +
		"SHA Number,SHA12345\n" +
		"Visit Type,Outpatient\n" +
		"Visit Date,15/01/2025\n" +
		"Admission Diagnosis,Acute bronchitis\n" +
		"ICD-11 Code,CA40.0\n")

	claim, err := New(testLogger()).Extract(doc, domain.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "PRV-001", *claim.ProviderID)
	assert.Equal(t, "Nakuru County Hospital", *claim.ProviderName)
	assert.Equal(t, "Wanjiku", *claim.PatientLastName)
	assert.Equal(t, "Grace", *claim.PatientFirstName)
	assert.Equal(t, "SHA12345", *claim.SHANumber)
	assert.Equal(t, "Outpatient", *claim.VisitType)
	assert.Equal(t, "Acute bronchitis", *claim.AdmissionDiagnosis)
	assert.Equal(t, "CA40.0", *claim.ICD11Code)
	require.NotNil(t, claim.VisitAdmissionDate)
	assert.Equal(t, "2025-01-15", claim.VisitAdmissionDate.Format("2006-01-02"))
}

func TestExtractCSV_BenefitTable(t *testing.T) {
	doc := []byte("Admission Date,Case Code,Description,Preauth No,Bill Amount,Claim Amount\n" +
		"15/01/2025,CC-01,Consultation,PA-100,\"KSh 2,000\",\"1,500\"\n" +
		"15/01/2025,CC-02,Laboratory,PA-100,3000,3000\n" +
		",,Total,,5000,4500\n")

	claim, err := New(testLogger()).Extract(doc, domain.FormatCSV)
	require.NoError(t, err)

	// Summary row is dropped, totals recomputed from the lines
	require.Len(t, claim.BenefitLines, 2)
	assert.Equal(t, "CC-01", claim.BenefitLines[0].CaseCode)
	assert.Equal(t, "PA-100", claim.BenefitLines[0].PreauthNo)
	assert.Equal(t, 2000.0, *claim.BenefitLines[0].BillAmount)
	assert.Equal(t, 1500.0, *claim.BenefitLines[0].ClaimAmount)
	require.NotNil(t, claim.BenefitLines[0].AdmissionDate)
	require.NotNil(t, claim.TotalClaimAmount)
	assert.Equal(t, 4500.0, *claim.TotalClaimAmount)
}

func TestExtractCSV_NanCellsIgnored(t *testing.T) {
	doc := []byte("Provider ID,nan\nSHA Number,none\n")

	claim, err := New(testLogger()).Extract(doc, domain.FormatCSV)
	require.NoError(t, err)

	assert.Nil(t, claim.ProviderID)
	assert.Nil(t, claim.SHANumber)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	kv := [][]string{
		{"Provider ID", "PRV-002"},
		{"SHA Number", "SHA99887"},
		{"Visit Type", "Inpatient"},
	}
	for i, row := range kv {
		require.NoError(t, f.SetCellValue("Sheet1", cellRef(t, 1, i+1), row[0]))
		require.NoError(t, f.SetCellValue("Sheet1", cellRef(t, 2, i+1), row[1]))
	}

	_, err := f.NewSheet("Benefits")
	require.NoError(t, err)
	table := [][]string{
		{"Description", "Preauth No", "Bill Amount", "Claim Amount"},
		{"Theatre fees", "PA-300", "80000", "80000"},
	}
	for r, row := range table {
		for c, cell := range row {
			require.NoError(t, f.SetCellValue("Benefits", cellRef(t, c+1, r+1), cell))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	claim, err := New(testLogger()).Extract(buf.Bytes(), domain.FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, "PRV-002", *claim.ProviderID)
	assert.Equal(t, "SHA99887", *claim.SHANumber)
	assert.Equal(t, "Inpatient", *claim.VisitType)
	require.Len(t, claim.BenefitLines, 1)
	assert.Equal(t, "Theatre fees", claim.BenefitLines[0].Description)
	assert.Equal(t, 80000.0, *claim.BenefitLines[0].BillAmount)
}

func cellRef(t *testing.T, col, row int) string {
	t.Helper()
	ref, err := excelize.CoordinatesToCellName(col, row)
	require.NoError(t, err)
	return ref
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>CLAIM NO: SHA-2025-0042</w:t></w:r></w:p>
<w:p><w:r><w:t>Health Provider Identification Number: PRV-003</w:t></w:r></w:p>
<w:p><w:r><w:t>Last Name: Ochieng</w:t></w:r></w:p>
<w:p><w:r><w:t>Social Health Authority Number: SHA55667</w:t></w:r></w:p>
<w:p><w:r><w:t>Visit/Admission Date: 10/02/2025</w:t></w:r></w:p>
<w:p><w:r><w:t>[X] Inpatient</w:t></w:r></w:p>
<w:p><w:r><w:t>[X] NO</w:t></w:r></w:p>
<w:p><w:r><w:t>[X] Improved</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Description</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Preauth No</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Claim Amount</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Ward fees</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>PA-200</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>45000</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	claim, err := New(testLogger()).Extract(buildDOCX(t, docxBody), domain.FormatDOCX)
	require.NoError(t, err)

	assert.Equal(t, "SHA-2025-0042", *claim.ClaimNumber)
	assert.Equal(t, "PRV-003", *claim.ProviderID)
	assert.Equal(t, "Ochieng", *claim.PatientLastName)
	assert.Equal(t, "SHA55667", *claim.SHANumber)
	require.NotNil(t, claim.VisitAdmissionDate)
	assert.Equal(t, "2025-02-10", claim.VisitAdmissionDate.Format("2006-01-02"))

	// Checkboxes
	assert.Equal(t, "Inpatient", *claim.VisitType)
	require.NotNil(t, claim.WasReferred)
	assert.False(t, *claim.WasReferred)
	assert.Equal(t, "Improved", *claim.PatientDisposition)

	// Benefits table
	require.Len(t, claim.BenefitLines, 1)
	assert.Equal(t, "Ward fees", claim.BenefitLines[0].Description)
	assert.Equal(t, "PA-200", claim.BenefitLines[0].PreauthNo)
	assert.Equal(t, 45000.0, *claim.BenefitLines[0].ClaimAmount)
}

func TestExtractDOCX_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = New(testLogger()).Extract(buf.Bytes(), domain.FormatDOCX)

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, domain.FormatDOCX, extractionErr.Format)
}

func TestApplyPatterns_FormText(t *testing.T) {
	text := "Name of Health Care Provider/Facility: Kisumu Specialist Hospital\n" +
		"First Name: Akinyi\n" +
		"Residence: Kisumu\n" +
		"Discharge Date: 18/02/2025\n" +
		"Admission Diagnosis: Severe malaria\n" +
		"ICD-11 Code: CA23.0\n"

	claim := &domain.ExtractedClaim{}
	applyPatterns(text, claim)

	assert.Equal(t, "Kisumu Specialist Hospital", *claim.ProviderName)
	assert.Equal(t, "Akinyi", *claim.PatientFirstName)
	assert.Equal(t, "Kisumu", *claim.Residence)
	assert.Equal(t, "Severe malaria", *claim.AdmissionDiagnosis)
	assert.Equal(t, "CA23.0", *claim.ICD11Code)
	require.NotNil(t, claim.DischargeDate)
	assert.Equal(t, "2025-02-18", claim.DischargeDate.Format("2006-01-02"))
}

func TestApplyPatterns_FirstMatchWins(t *testing.T) {
	text := "Last Name: Wanjiku\nLast Name: Impostor\n"

	claim := &domain.ExtractedClaim{}
	applyPatterns(text, claim)

	assert.Equal(t, "Wanjiku", *claim.PatientLastName)
}

func TestExtractCheckboxes_GlyphBeatsFallback(t *testing.T) {
	text := "Visit type: Outpatient\n☑ Inpatient\n"

	claim := &domain.ExtractedClaim{}
	extractCheckboxes(text, claim)

	assert.Equal(t, "Inpatient", *claim.VisitType)
}

func TestExtractCheckboxes_ReferralYes(t *testing.T) {
	text := "Was the patient referred? [X] If YES, name of facility\n"

	claim := &domain.ExtractedClaim{}
	extractCheckboxes(text, claim)

	require.NotNil(t, claim.WasReferred)
	assert.True(t, *claim.WasReferred)
}

func TestTablesFromText(t *testing.T) {
	text := "Part IV SHA Health Benefits\n" +
		"Description    Preauth No    Bill Amount    Claim Amount\n" +
		"Consultation    PA-100    2000    1500\n" +
		"Laboratory    PA-100    3000    3000\n" +
		"Signed by the claimant\n"

	tables := tablesFromText(text)
	require.Len(t, tables, 1)

	lines := parseBenefitTables(tables)
	require.Len(t, lines, 2)
	assert.Equal(t, "Consultation", lines[0].Description)
	assert.Equal(t, 1500.0, *lines[0].ClaimAmount)
}
