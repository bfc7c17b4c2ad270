package models

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

/*
Schema management for the site database.

Migrate is run at startup when AUTO_MIGRATE=true. It creates the projects,
project_images and contact_submissions tables, the unique slug index and the
ON DELETE CASCADE foreign key from project_images to projects.

GENERATE_MODELS=true additionally writes typed query helpers to ./generated
and prints a column mismatch report:

=== COLUMN MISMATCH REPORT ===
--- Table: projects ---
All columns are accounted for in the model.
*/

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Project{},
		&ProjectImage{},
		&ContactSubmission{},
	}
}

// Migrate creates or updates tables for every model.
func Migrate(db *gorm.DB) error {
	migrateDB := db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	if err := migrateDB.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info().Int("models", len(All())).Msg("database migration completed")
	return nil
}

// GenerateModels migrates, reports column drift and writes gorm/gen query code.
func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	if _, err := GenerateColumnMismatchReport(db); err != nil {
		return err
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(Project{}, ProjectImage{}, ContactSubmission{})
	g.Execute()

	log.Info().Str("outPath", outPath).Msg("model generation complete")
	return nil
}

// GenerateColumnMismatchReport logs database columns that no model field maps
// to and returns the total count.
func GenerateColumnMismatchReport(db *gorm.DB) (int, error) {
	totalMismatches := 0

	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return 0, fmt.Errorf("parse model %T: %w", model, err)
		}
		tableName := stmt.Schema.Table

		dbColumns, err := getTableColumns(db, tableName)
		if err != nil {
			log.Warn().Err(err).Str("table", tableName).Msg("skipping column report for table")
			continue
		}

		mismatches := findColumnMismatches(dbColumns, getModelColumns(stmt.Schema))
		if len(mismatches) > 0 {
			log.Warn().Str("table", tableName).Strs("columns", mismatches).Msg("columns not accounted for in model")
			totalMismatches += len(mismatches)
		} else {
			log.Info().Str("table", tableName).Msg("all columns are accounted for in the model")
		}
	}

	log.Info().Int("total", totalMismatches).Msg("column mismatch report finished")
	return totalMismatches, nil
}

// getTableColumns retrieves column names from a database table
func getTableColumns(db *gorm.DB, tableName string) ([]string, error) {
	var columns []string
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`
	if err := db.Raw(query, tableName).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", tableName)
	}
	return columns, nil
}

// getModelColumns lists the DB column names gorm maps for a parsed schema.
// Relation fields carry no column and are not in DBNames.
func getModelColumns(s *schema.Schema) []string {
	fields := make([]string, 0, len(s.DBNames))
	for _, name := range s.DBNames {
		fields = append(fields, strings.ToLower(name))
	}
	return fields
}

// findColumnMismatches finds columns that exist in the database but not in the model
func findColumnMismatches(dbColumns, modelFields []string) []string {
	modelFieldSet := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		modelFieldSet[field] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !modelFieldSet[col] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}
