package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexDataset() Dataset {
	return Dataset{
		Headers: []string{"No", "Category", "Title"},
		Rows: []map[string]string{
			{"No": "1", "Category": "NAAC: Faculty CVs", "Title": "Dr. Rao CV"},
			{"No": "2", "Category": "NAAC: Student Feedback Reports", "Title": "Feedback, 2024"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(indexDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "No,Category,Title", lines[0])
	assert.Equal(t, `2,NAAC: Student Feedback Reports,"Feedback, 2024"`, lines[2])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Title"},
		Rows:    []map[string]string{{"Title": "=HYPERLINK(\"x\")"}, {"Title": "-1 budget"}, {"Title": "Plain"}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"'=HYPERLINK(""x"")"`, lines[1])
	assert.Equal(t, "'-1 budget", lines[2])
	assert.Equal(t, "Plain", lines[3])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(indexDataset(), "AccrediFlow Report NAAC")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFMergerMergesInOrder(t *testing.T) {
	exporter := NewPDFExporter()
	first, err := exporter.Render(indexDataset(), "first")
	require.NoError(t, err)
	second, err := exporter.Render(indexDataset(), "second")
	require.NoError(t, err)

	merged, err := NewPDFMerger().Merge(context.Background(), [][]byte{first, second})
	require.NoError(t, err)

	pages, err := api.PageCount(bytes.NewReader(merged), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestPDFMergerValidate(t *testing.T) {
	good, err := NewPDFExporter().Render(indexDataset(), "index")
	require.NoError(t, err)

	merger := NewPDFMerger()
	assert.NoError(t, merger.Validate(good))
	assert.Error(t, merger.Validate([]byte("%PDF-1.4 junk")))
}

func TestPDFMergerEmpty(t *testing.T) {
	_, err := NewPDFMerger().Merge(context.Background(), nil)
	require.ErrorIs(t, err, ErrNothingToMerge)
}
