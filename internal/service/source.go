package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// DirSource serves uploaded claim documents from a local directory. It is the
// default DocumentSource for single-node deployments; an object-store backed
// implementation can replace it without touching the intake pipeline.
type DirSource struct {
	root string
}

// NewDirSource creates a directory-backed document source rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Fetch reads the document bytes for ref. The ref is a bare file name; path
// separators are rejected so a caller cannot escape the root directory.
func (s *DirSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" || ref != filepath.Base(ref) || strings.Contains(ref, "..") {
		return nil, fmt.Errorf("%w: %q", domain.ErrSourceNotFound, ref)
	}

	data, err := os.ReadFile(filepath.Join(s.root, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", domain.ErrSourceNotFound, ref)
		}
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrSourceUnreadable, ref, err)
	}
	return data, nil
}

// ExtractFromSource fetches a previously stored document by reference,
// resolves its format from the file extension, and runs it through
// ExtractAndValidate. Fetch and format errors are hard failures; validation
// findings come back through the error-string slice as usual.
func (in *Intake) ExtractFromSource(ctx context.Context, src domain.DocumentSource, ref string) (*domain.ExtractedClaim, bool, []string, error) {
	data, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, false, nil, fmt.Errorf("fetching document %q: %w", ref, err)
	}

	format, err := DetectFormat(ref)
	if err != nil {
		return nil, false, nil, err
	}

	claim, valid, errs := in.ExtractAndValidate(data, format)
	return claim, valid, errs, nil
}
