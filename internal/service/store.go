package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fabos/estimation-service/internal/catalogue"
	"github.com/fabos/estimation-service/internal/model"
)

// Store is the persistence the calculation cascade reads from and writes to.
// Lookups of missing entities return gorm.ErrRecordNotFound; soft-deleted
// entities come back with IsDeleted set.
type Store interface {
	// GetWorksheet loads a worksheet with its column registry and its
	// non-deleted rows.
	GetWorksheet(ctx context.Context, id uuid.UUID) (*model.Worksheet, error)
	// ListPackageWorksheets loads every non-deleted worksheet of a package with
	// columns and rows, for cross-worksheet references.
	ListPackageWorksheets(ctx context.Context, packageID uuid.UUID) ([]model.Worksheet, error)
	// ListWorksheetTotals loads the non-deleted worksheets of a package with
	// their stored totals only.
	ListWorksheetTotals(ctx context.Context, packageID uuid.UUID) ([]model.Worksheet, error)
	// SaveWorksheetCalculation writes row data, row totals and worksheet totals
	// in one transaction. Rows flagged PayloadUnreadable keep their stored
	// data; only their calculated total is written.
	SaveWorksheetCalculation(ctx context.Context, ws *model.Worksheet) error

	GetPackage(ctx context.Context, id uuid.UUID) (*model.Package, error)
	ListPackageTotals(ctx context.Context, revisionID uuid.UUID) ([]model.Package, error)
	SavePackageTotals(ctx context.Context, pkg *model.Package) error

	GetRevision(ctx context.Context, id uuid.UUID) (*model.Revision, error)
	SaveRevisionTotals(ctx context.Context, rev *model.Revision) error

	// GetEstimation loads an estimation with its non-deleted revisions.
	GetEstimation(ctx context.Context, id uuid.UUID) (*model.Estimation, error)
	SaveEstimationSummary(ctx context.Context, est *model.Estimation) error

	InsertRows(ctx context.Context, worksheetID uuid.UUID, rows []model.Row) error
	GetCatalogueItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalogue.Item, error)
}
