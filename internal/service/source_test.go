package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func TestDirSource_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "claim.csv"), []byte("Provider ID,PRV-001\n"), 0o644))

	src := NewDirSource(root)

	data, err := src.Fetch(context.Background(), "claim.csv")
	require.NoError(t, err)
	assert.Equal(t, "Provider ID,PRV-001\n", string(data))
}

func TestDirSource_Fetch_NotFound(t *testing.T) {
	src := NewDirSource(t.TempDir())

	_, err := src.Fetch(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestDirSource_Fetch_RejectsPathTraversal(t *testing.T) {
	src := NewDirSource(t.TempDir())

	for _, ref := range []string{"", "../escape.csv", "nested/claim.csv"} {
		_, err := src.Fetch(context.Background(), ref)
		assert.ErrorIs(t, err, domain.ErrSourceNotFound, "ref %q", ref)
	}
}

func TestExtractFromSource(t *testing.T) {
	root := t.TempDir()
	csvDoc := "Provider ID,PRV-001\n" +
		"SHA Number,SHA12345\n" +
		"Visit Type,Outpatient\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "upload.csv"), []byte(csvDoc), 0o644))

	intake := newTestIntake(&stubClaimStore{}, nil)

	claim, valid, errs, err := intake.ExtractFromSource(context.Background(), NewDirSource(root), "upload.csv")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "PRV-001", *claim.ProviderID)
	assert.False(t, valid)
	assert.NotEmpty(t, errs)
}

func TestExtractFromSource_FetchFailure(t *testing.T) {
	intake := newTestIntake(&stubClaimStore{}, nil)

	claim, _, _, err := intake.ExtractFromSource(context.Background(), NewDirSource(t.TempDir()), "gone.csv")
	assert.Nil(t, claim)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestExtractFromSource_UnknownExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "scan.tiff"), []byte("x"), 0o644))

	intake := newTestIntake(&stubClaimStore{}, nil)

	_, _, _, err := intake.ExtractFromSource(context.Background(), NewDirSource(root), "scan.tiff")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
