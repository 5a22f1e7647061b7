package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS estimations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		estimation_number VARCHAR(64) NOT NULL,
		project_name TEXT NOT NULL DEFAULT '',
		current_revision_letter VARCHAR(8),
		current_total NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_estimations_number ON estimations (estimation_number) WHERE is_deleted = FALSE;`,
	`CREATE TABLE IF NOT EXISTS estimation_revisions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		estimation_id UUID NOT NULL REFERENCES estimations(id),
		revision_letter VARCHAR(8) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'Draft',
		overhead_percentage NUMERIC(9,4) NOT NULL DEFAULT 0,
		margin_percentage NUMERIC(9,4) NOT NULL DEFAULT 0,
		total_material_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_labor_hours NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_labor_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		subtotal NUMERIC(18,4) NOT NULL DEFAULT 0,
		overhead_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		margin_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimation_revisions_estimation_id ON estimation_revisions (estimation_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_estimation_revisions_letter ON estimation_revisions (estimation_id, UPPER(revision_letter)) WHERE is_deleted = FALSE;`,
	`CREATE TABLE IF NOT EXISTS estimation_packages (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		revision_id UUID NOT NULL REFERENCES estimation_revisions(id),
		name TEXT NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		overhead_percentage NUMERIC(9,4) NOT NULL DEFAULT 0,
		material_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		labor_hours NUMERIC(18,4) NOT NULL DEFAULT 0,
		labor_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		overhead_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		package_total NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimation_packages_revision_id ON estimation_packages (revision_id);`,
	`CREATE TABLE IF NOT EXISTS estimation_worksheets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		package_id UUID NOT NULL REFERENCES estimation_packages(id),
		name TEXT NOT NULL,
		worksheet_type VARCHAR(64) NOT NULL DEFAULT '',
		sort_order INT NOT NULL DEFAULT 0,
		total_material_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_labor_hours NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_labor_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_cost NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimation_worksheets_package_id ON estimation_worksheets (package_id);`,
	`CREATE TABLE IF NOT EXISTS estimation_worksheet_columns (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		worksheet_id UUID NOT NULL REFERENCES estimation_worksheets(id) ON DELETE CASCADE,
		column_key VARCHAR(128) NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		data_type VARCHAR(32) NOT NULL DEFAULT 'text',
		formula TEXT,
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		is_read_only BOOLEAN NOT NULL DEFAULT FALSE,
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order INT NOT NULL DEFAULT 0,
		catalogue_field VARCHAR(64),
		auto_populate BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_estimation_worksheet_columns_key ON estimation_worksheet_columns (worksheet_id, LOWER(column_key)) WHERE is_deleted = FALSE;`,
	`CREATE TABLE IF NOT EXISTS catalogue_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		item_code VARCHAR(64) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category VARCHAR(64) NOT NULL DEFAULT '',
		material VARCHAR(64) NOT NULL DEFAULT '',
		profile VARCHAR(64) NOT NULL DEFAULT '',
		unit VARCHAR(16) NOT NULL DEFAULT '',
		unit_price NUMERIC(18,4) NOT NULL DEFAULT 0,
		weight_per_unit NUMERIC(18,4) NOT NULL DEFAULT 0,
		labor_hours_per_unit NUMERIC(18,4) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_catalogue_items_code ON catalogue_items (item_code) WHERE is_deleted = FALSE;`,
	`CREATE TABLE IF NOT EXISTS estimation_worksheet_rows (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		worksheet_id UUID NOT NULL REFERENCES estimation_worksheets(id) ON DELETE CASCADE,
		row_number INT NOT NULL,
		is_group_header BOOLEAN NOT NULL DEFAULT FALSE,
		row_data JSONB NOT NULL DEFAULT '{}'::jsonb,
		calculated_total NUMERIC(18,4),
		catalogue_item_id UUID REFERENCES catalogue_items(id),
		match_status VARCHAR(32),
		match_confidence NUMERIC(5,4),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimation_worksheet_rows_worksheet_id ON estimation_worksheet_rows (worksheet_id, row_number) WHERE is_deleted = FALSE;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
