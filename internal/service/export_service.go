package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fabos/estimation-service/internal/model"
)

type ExcelGenerator interface {
	Generate(export model.RevisionExport) ([]byte, error)
}

type PDFGenerator interface {
	Generate(export model.RevisionExport) ([]byte, error)
}

type ExportService struct {
	store Store
	calc  *CalculationService
	excel ExcelGenerator
	pdf   PDFGenerator
}

type ExportRevisionInput struct {
	RevisionID  uuid.UUID
	Recalculate bool
	Principal   model.Principal
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func NewExportService(store Store, calc *CalculationService, excel ExcelGenerator, pdf PDFGenerator) *ExportService {
	return &ExportService{
		store: store,
		calc:  calc,
		excel: excel,
		pdf:   pdf,
	}
}

// ExportWorkbook renders a revision as an xlsx workbook: a summary sheet
// followed by one sheet per live worksheet.
func (s *ExportService) ExportWorkbook(ctx context.Context, input ExportRevisionInput) (*ExportResult, error) {
	export, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(export)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildFileName(export, "xlsx"),
		Content:  content,
	}, nil
}

// ExportPDF renders the revision's cost summary as a PDF document.
func (s *ExportService) ExportPDF(ctx context.Context, input ExportRevisionInput) (*ExportResult, error) {
	export, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(export)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildFileName(export, "pdf"),
		Content:  content,
	}, nil
}

func (s *ExportService) build(ctx context.Context, input ExportRevisionInput) (model.RevisionExport, error) {
	if !input.Principal.CanRead() {
		return model.RevisionExport{}, ErrPermissionDenied
	}
	if input.RevisionID == uuid.Nil {
		return model.RevisionExport{}, fmt.Errorf("%w: revision_id is required", ErrInvalidInput)
	}

	if input.Recalculate {
		if !input.Principal.CanEdit() {
			return model.RevisionExport{}, ErrPermissionDenied
		}
		rev, err := s.calc.RecalculateRevision(ctx, input.RevisionID)
		if err != nil {
			return model.RevisionExport{}, err
		}
		if rev == nil {
			return model.RevisionExport{}, ErrNotFound
		}
	}

	summary, err := s.calc.RevisionSummary(ctx, input.RevisionID)
	if err != nil {
		return model.RevisionExport{}, err
	}

	export := model.RevisionExport{Summary: *summary}

	est, err := s.store.GetEstimation(ctx, summary.EstimationID)
	switch {
	case err == nil:
		export.EstimationNumber = est.Number
		export.ProjectName = est.ProjectName
	case !isNotFound(err):
		return model.RevisionExport{}, err
	}

	for _, pkg := range summary.Packages {
		for _, wsSummary := range pkg.Worksheets {
			ws, err := s.store.GetWorksheet(ctx, wsSummary.WorksheetID)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return model.RevisionExport{}, err
			}
			export.Sheets = append(export.Sheets, model.ExportSheet{
				PackageName: pkg.PackageName,
				Worksheet:   *ws,
			})
		}
	}
	return export, nil
}

func buildFileName(export model.RevisionExport, ext string) string {
	number := sanitizeFileName(export.EstimationNumber)
	if number == "" {
		number = export.Summary.EstimationID.String()
	}
	letter := sanitizeFileName(export.Summary.Letter)
	if letter == "" {
		letter = export.Summary.RevisionID.String()
	}
	return fmt.Sprintf("estimate-%s-rev-%s.%s", number, letter, ext)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
