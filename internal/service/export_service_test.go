package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabos/estimation-service/internal/model"
)

type recordingGenerator struct {
	got model.RevisionExport
	out []byte
}

func (g *recordingGenerator) Generate(export model.RevisionExport) ([]byte, error) {
	g.got = export
	return g.out, nil
}

func TestExportWorkbook(t *testing.T) {
	f := newFixture()
	excel := &recordingGenerator{out: []byte("xlsx")}
	pdf := &recordingGenerator{out: []byte("pdf")}
	exports := NewExportService(f.store, f.svc, excel, pdf)

	result, err := exports.ExportWorkbook(context.Background(), ExportRevisionInput{
		RevisionID:  f.revision,
		Recalculate: true,
		Principal:   estimator,
	})
	require.NoError(t, err)

	assert.Equal(t, "estimate-EST-0042-rev-A.xlsx", result.FileName)
	assert.Equal(t, []byte("xlsx"), result.Content)
	assert.Equal(t, "EST-0042", excel.got.EstimationNumber)
	assert.Equal(t, "Warehouse Frame", excel.got.ProjectName)
	assertDecimal(t, "302.5", excel.got.Summary.Totals.TotalAmount)
	require.Len(t, excel.got.Sheets, 1)
	assert.Equal(t, "Steelwork", excel.got.Sheets[0].PackageName)
	assert.Equal(t, "Takeoff", excel.got.Sheets[0].Worksheet.Name)
}

func TestExportPDF(t *testing.T) {
	f := newFixture()
	pdf := &recordingGenerator{out: []byte("pdf")}
	exports := NewExportService(f.store, f.svc, &recordingGenerator{}, pdf)
	viewer := model.Principal{UserID: uuid.New(), Role: model.UserRoleViewer}

	result, err := exports.ExportPDF(context.Background(), ExportRevisionInput{RevisionID: f.revision, Principal: viewer})
	require.NoError(t, err)
	assert.Equal(t, "estimate-EST-0042-rev-A.pdf", result.FileName)
	assert.Equal(t, "A", pdf.got.Summary.Letter)

	_, err = exports.ExportPDF(context.Background(), ExportRevisionInput{RevisionID: f.revision, Recalculate: true, Principal: viewer})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = exports.ExportPDF(context.Background(), ExportRevisionInput{RevisionID: uuid.New(), Principal: viewer})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = exports.ExportPDF(context.Background(), ExportRevisionInput{Principal: viewer})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = exports.ExportPDF(context.Background(), ExportRevisionInput{RevisionID: f.revision})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "EST-12-North-Yard", sanitizeFileName(" EST/12 North Yard "))
	assert.Equal(t, "", sanitizeFileName("///"))
}
