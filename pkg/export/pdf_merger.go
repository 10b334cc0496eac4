package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNothingToMerge is returned when no parts were supplied.
var ErrNothingToMerge = errors.New("no documents to merge")

var disableConfigDir sync.Once

// PDFMerger concatenates PDF blobs in the order given.
type PDFMerger struct{}

// NewPDFMerger returns a merger that never touches the user config directory.
func NewPDFMerger() *PDFMerger {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFMerger{}
}

// Validate reports whether data parses as a PDF that Merge can consume.
func (m *PDFMerger) Validate(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), nil); err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	return nil
}

// Merge returns one PDF holding every page of parts, in order.
func (m *PDFMerger) Merge(ctx context.Context, parts [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, ErrNothingToMerge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	readers := make([]io.ReadSeeker, 0, len(parts))
	for _, part := range parts {
		readers = append(readers, bytes.NewReader(part))
	}
	buf := &bytes.Buffer{}
	if err := api.MergeRaw(readers, buf, false, nil); err != nil {
		return nil, fmt.Errorf("merge pdf: %w", err)
	}
	return buf.Bytes(), nil
}
