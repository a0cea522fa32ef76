// Package dsr stores the Detailed Schedule of Rates: the reference
// catalog of standardized work items priced during estimation.
package dsr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"estimatex/internal"
)

var ErrItemNotFound = errors.New("dsr item not found")

const (
	defaultExactLimit = 5
	defaultFuzzyLimit = 10
	defaultListLimit  = 50
)

type Store struct {
	conn *sql.DB

	// Query row caps for the two matcher passes.
	ExactLimit int
	FuzzyLimit int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{conn: conn, ExactLimit: defaultExactLimit, FuzzyLimit: defaultFuzzyLimit}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS dsr_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_code TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL,
  unit TEXT NOT NULL,
  rate REAL NOT NULL DEFAULT 0,
  category TEXT,
  sub_category TEXT,
  material_cost REAL NOT NULL DEFAULT 0,
  labor_cost REAL NOT NULL DEFAULT 0,
  equipment_cost REAL NOT NULL DEFAULT 0,
  overhead_percentage REAL NOT NULL DEFAULT 0,
  notes TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dsr_items_item_code ON dsr_items(item_code);
CREATE INDEX IF NOT EXISTS idx_dsr_items_category ON dsr_items(category);
CREATE INDEX IF NOT EXISTS idx_dsr_items_is_active ON dsr_items(is_active);
`
	_, err := s.conn.Exec(schema)
	return err
}

const itemColumns = `id, item_code, description, unit, rate,
       COALESCE(category, ''), COALESCE(sub_category, ''),
       material_cost, labor_cost, equipment_cost, overhead_percentage,
       COALESCE(notes, ''), is_active`

func scanItem(row interface{ Scan(...any) error }) (internal.DSRItem, error) {
	var item internal.DSRItem
	err := row.Scan(
		&item.ID, &item.ItemCode, &item.Description, &item.Unit, &item.Rate,
		&item.Category, &item.SubCategory,
		&item.MaterialCost, &item.LaborCost, &item.EquipmentCost, &item.OverheadPercentage,
		&item.Notes, &item.IsActive,
	)
	return item, err
}

// FindExact implements the matcher's first pass: case-insensitive exact
// description equality over active items.
func (s *Store) FindExact(ctx context.Context, description string) ([]internal.DSRItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT `+itemColumns+`
FROM dsr_items
WHERE is_active = 1 AND LOWER(description) = LOWER(?)
ORDER BY item_code ASC
LIMIT ?
`, strings.TrimSpace(description), s.ExactLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// FindFuzzyCandidates implements the matcher's second pass: substring
// match of the whole query OR-ed with per-keyword substring matches.
func (s *Store) FindFuzzyCandidates(ctx context.Context, description string, keywords []string) ([]internal.DSRItem, error) {
	clauses := []string{"LOWER(description) LIKE ?"}
	args := []any{"%" + strings.ToLower(strings.TrimSpace(description)) + "%"}
	for _, kw := range keywords {
		clauses = append(clauses, "LOWER(description) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	args = append(args, s.FuzzyLimit)

	query := `
SELECT ` + itemColumns + `
FROM dsr_items
WHERE is_active = 1 AND (` + strings.Join(clauses, " OR ") + `)
ORDER BY item_code ASC
LIMIT ?
`
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListItems returns active items, optionally filtered by category and a
// code/description substring search.
func (s *Store) ListItems(ctx context.Context, category, search string, limit int) ([]internal.DSRItem, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	clauses := []string{"is_active = 1"}
	args := []any{}
	if category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, category)
	}
	if search != "" {
		clauses = append(clauses, "(LOWER(description) LIKE ? OR LOWER(item_code) LIKE ?)")
		needle := "%" + strings.ToLower(search) + "%"
		args = append(args, needle, needle)
	}
	args = append(args, limit)

	query := `
SELECT ` + itemColumns + `
FROM dsr_items
WHERE ` + strings.Join(clauses, " AND ") + `
ORDER BY item_code ASC
LIMIT ?
`
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Store) GetItem(ctx context.Context, id int) (internal.DSRItem, error) {
	item, err := scanItem(s.conn.QueryRowContext(ctx, `
SELECT `+itemColumns+`
FROM dsr_items WHERE id = ?
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return internal.DSRItem{}, ErrItemNotFound
	}
	if err != nil {
		return internal.DSRItem{}, err
	}
	return item, nil
}

func (s *Store) CreateItem(ctx context.Context, item internal.DSRItem) (internal.DSRItem, error) {
	result, err := s.conn.ExecContext(ctx, `
INSERT INTO dsr_items (
  item_code, description, unit, rate, category, sub_category,
  material_cost, labor_cost, equipment_cost, overhead_percentage, notes, is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, item.ItemCode, item.Description, item.Unit, item.Rate,
		nullable(item.Category), nullable(item.SubCategory),
		item.MaterialCost, item.LaborCost, item.EquipmentCost, item.OverheadPercentage,
		nullable(item.Notes), boolToInt(item.IsActive))
	if err != nil {
		return internal.DSRItem{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.DSRItem{}, err
	}
	item.ID = int(id)
	return item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item internal.DSRItem) error {
	result, err := s.conn.ExecContext(ctx, `
UPDATE dsr_items SET
  item_code = ?, description = ?, unit = ?, rate = ?,
  category = ?, sub_category = ?,
  material_cost = ?, labor_cost = ?, equipment_cost = ?, overhead_percentage = ?,
  notes = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, item.ItemCode, item.Description, item.Unit, item.Rate,
		nullable(item.Category), nullable(item.SubCategory),
		item.MaterialCost, item.LaborCost, item.EquipmentCost, item.OverheadPercentage,
		nullable(item.Notes), boolToInt(item.IsActive), item.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpsertItems inserts or refreshes schedule rows keyed by item code.
// Used by the XLSX import and seed paths.
func (s *Store) UpsertItems(ctx context.Context, items []internal.DSRItem) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO dsr_items (
  item_code, description, unit, rate, category, sub_category,
  material_cost, labor_cost, equipment_cost, overhead_percentage, notes, is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(item_code) DO UPDATE SET
  description = excluded.description,
  unit = excluded.unit,
  rate = excluded.rate,
  category = excluded.category,
  sub_category = excluded.sub_category,
  material_cost = excluded.material_cost,
  labor_cost = excluded.labor_cost,
  equipment_cost = excluded.equipment_cost,
  overhead_percentage = excluded.overhead_percentage,
  notes = excluded.notes,
  is_active = excluded.is_active,
  updated_at = CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if strings.TrimSpace(item.ItemCode) == "" {
			return fmt.Errorf("dsr item without item code: %q", item.Description)
		}
		if _, err := stmt.ExecContext(ctx,
			item.ItemCode, item.Description, item.Unit, item.Rate,
			nullable(item.Category), nullable(item.SubCategory),
			item.MaterialCost, item.LaborCost, item.EquipmentCost, item.OverheadPercentage,
			nullable(item.Notes), boolToInt(item.IsActive)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Categories lists the distinct categories of active items.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT DISTINCT category FROM dsr_items
WHERE is_active = 1 AND category IS NOT NULL AND category != ''
ORDER BY category ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func collectItems(rows *sql.Rows) ([]internal.DSRItem, error) {
	var out []internal.DSRItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
