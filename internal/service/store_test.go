package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabos/estimation-service/internal/catalogue"
	"github.com/fabos/estimation-service/internal/config"
	"github.com/fabos/estimation-service/internal/formula"
	"github.com/fabos/estimation-service/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// memStore keeps entities in maps and hands out deep copies, so the service
// only sees its own writes through the Save methods.
type memStore struct {
	mu sync.Mutex

	worksheets  map[uuid.UUID]*model.Worksheet
	packages    map[uuid.UUID]*model.Package
	revisions   map[uuid.UUID]*model.Revision
	estimations map[uuid.UUID]*model.Estimation
	items       map[uuid.UUID]catalogue.Item

	failSave       map[uuid.UUID]bool
	worksheetSaves int

	// payloads holds the serialised row data as a real store would keep it.
	payloads map[uuid.UUID]string
}

func newMemStore() *memStore {
	return &memStore{
		worksheets:  make(map[uuid.UUID]*model.Worksheet),
		packages:    make(map[uuid.UUID]*model.Package),
		revisions:   make(map[uuid.UUID]*model.Revision),
		estimations: make(map[uuid.UUID]*model.Estimation),
		items:       make(map[uuid.UUID]catalogue.Item),
		failSave:    make(map[uuid.UUID]bool),
		payloads:    make(map[uuid.UUID]string),
	}
}

func cloneWorksheet(ws *model.Worksheet) *model.Worksheet {
	out := *ws
	out.Columns = append([]model.Column(nil), ws.Columns...)
	out.Rows = make([]model.Row, len(ws.Rows))
	for i, row := range ws.Rows {
		row.Data = row.Data.Clone()
		if row.CalculatedTotal != nil {
			total := *row.CalculatedTotal
			row.CalculatedTotal = &total
		}
		out.Rows[i] = row
	}
	return &out
}

func (m *memStore) GetWorksheet(_ context.Context, id uuid.UUID) (*model.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.worksheets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneWorksheet(ws), nil
}

func (m *memStore) packageWorksheets(packageID uuid.UUID) []model.Worksheet {
	result := make([]model.Worksheet, 0)
	for _, ws := range m.worksheets {
		if ws.PackageID == packageID && !ws.IsDeleted {
			result = append(result, *cloneWorksheet(ws))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result
}

func (m *memStore) ListPackageWorksheets(_ context.Context, packageID uuid.UUID) ([]model.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packageWorksheets(packageID), nil
}

func (m *memStore) ListWorksheetTotals(_ context.Context, packageID uuid.UUID) ([]model.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.packageWorksheets(packageID)
	for i := range result {
		result[i].Columns = nil
		result[i].Rows = nil
	}
	return result, nil
}

func (m *memStore) SaveWorksheetCalculation(_ context.Context, ws *model.Worksheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave[ws.ID] {
		return errStoreDown
	}
	for _, row := range ws.Rows {
		if !row.Aggregatable() || row.PayloadUnreadable {
			continue
		}
		payload, err := json.Marshal(row.Data)
		if err != nil {
			return err
		}
		m.payloads[row.ID] = string(payload)
	}
	m.worksheets[ws.ID] = cloneWorksheet(ws)
	m.worksheetSaves++
	return nil
}

func (m *memStore) GetPackage(_ context.Context, id uuid.UUID) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, ok := m.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *pkg
	out.WorksheetIDs = append([]uuid.UUID(nil), pkg.WorksheetIDs...)
	return &out, nil
}

func (m *memStore) ListPackageTotals(_ context.Context, revisionID uuid.UUID) ([]model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Package, 0)
	for _, pkg := range m.packages {
		if pkg.RevisionID == revisionID && !pkg.IsDeleted {
			result = append(result, *pkg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *memStore) SavePackageTotals(_ context.Context, pkg *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.packages[pkg.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Totals = pkg.Totals
	return nil
}

func (m *memStore) GetRevision(_ context.Context, id uuid.UUID) (*model.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rev, ok := m.revisions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *rev
	out.PackageIDs = append([]uuid.UUID(nil), rev.PackageIDs...)
	return &out, nil
}

func (m *memStore) SaveRevisionTotals(_ context.Context, rev *model.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.revisions[rev.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Totals = rev.Totals
	return nil
}

func (m *memStore) GetEstimation(_ context.Context, id uuid.UUID) (*model.Estimation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	est, ok := m.estimations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *est
	out.Revisions = nil
	for _, rev := range m.revisions {
		if rev.EstimationID == id && !rev.IsDeleted {
			out.Revisions = append(out.Revisions, *rev)
		}
	}
	sort.Slice(out.Revisions, func(i, j int) bool {
		return compareLetters(out.Revisions[i].Letter, out.Revisions[j].Letter) < 0
	})
	return &out, nil
}

func (m *memStore) SaveEstimationSummary(_ context.Context, est *model.Estimation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.estimations[est.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.CurrentRevisionLetter = est.CurrentRevisionLetter
	stored.CurrentTotal = est.CurrentTotal
	return nil
}

func (m *memStore) InsertRows(_ context.Context, worksheetID uuid.UUID, rows []model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.worksheets[worksheetID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, row := range rows {
		row.Data = row.Data.Clone()
		ws.Rows = append(ws.Rows, row)
	}
	return nil
}

func (m *memStore) GetCatalogueItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalogue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[uuid.UUID]catalogue.Item, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			result[id] = item
		}
	}
	return result, nil
}

// fixture is one estimation with a single revision, package and worksheet,
// matching the usual qty x unit_cost takeoff sheet.
type fixture struct {
	store      *memStore
	svc        *CalculationService
	estimation uuid.UUID
	revision   uuid.UUID
	pkg        uuid.UUID
	worksheet  uuid.UUID
}

func testConfig() *config.Config {
	return &config.Config{
		Estimates: config.EstimatesConfig{ApprovedStatuses: []string{"Approved"}},
	}
}

func newFixture() *fixture {
	f := &fixture{
		store:      newMemStore(),
		estimation: uuid.New(),
		revision:   uuid.New(),
		pkg:        uuid.New(),
		worksheet:  uuid.New(),
	}
	f.svc = NewCalculationService(f.store, formula.NewEngine(zerolog.Nop()), testConfig(), zerolog.Nop())

	f.store.estimations[f.estimation] = &model.Estimation{ID: f.estimation, Number: "EST-0042", ProjectName: "Warehouse Frame"}
	f.store.revisions[f.revision] = &model.Revision{
		ID:               f.revision,
		EstimationID:     f.estimation,
		Letter:           "A",
		Status:           model.RevisionStatusDraft,
		MarginPercentage: decimal.NewFromInt(10),
		PackageIDs:       []uuid.UUID{f.pkg},
	}
	f.store.packages[f.pkg] = &model.Package{
		ID:                 f.pkg,
		RevisionID:         f.revision,
		Name:               "Steelwork",
		OverheadPercentage: decimal.NewFromInt(10),
		WorksheetIDs:       []uuid.UUID{f.worksheet},
	}
	f.store.worksheets[f.worksheet] = &model.Worksheet{
		ID:        f.worksheet,
		PackageID: f.pkg,
		Name:      "Takeoff",
		Columns: []model.Column{
			{Key: "qty", DisplayName: "Qty", DataType: model.DataTypeNumber},
			{Key: "unit_cost", DisplayName: "Unit Cost", DataType: model.DataTypeCurrency},
			{Key: "total_cost", DisplayName: "Total", DataType: model.DataTypeComputed, Formula: "qty*unit_cost"},
		},
		Rows: []model.Row{
			newRow(1, "qty", 10, "unit_cost", 25),
		},
	}
	return f
}

func newRow(number int, pairs ...interface{}) model.Row {
	data := model.NewRowData()
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case int:
			data.Set(key, model.NumberFromInt(int64(v)))
		case string:
			data.Set(key, model.Number(decimal.RequireFromString(v)))
		case nil:
			data.Set(key, model.Null())
		}
	}
	return model.Row{ID: uuid.New(), RowNumber: number, Data: data}
}

func (f *fixture) storedWorksheet() *model.Worksheet {
	return f.store.worksheets[f.worksheet]
}
