package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/smart-inventory/internal/port"
)

var ErrColumnsUnresolved = errors.New("mirror table columns unresolved")

// Header aliases for the mirror's tabular store, tried in priority order.
// The sheet behind the mirror is hand-maintained, so column names vary.
var (
	identityAliases = []string{"identity", "item_id", "sku", "code", "item_key"}
	nameAliases     = []string{"name", "item", "item_name", "product", "product_name", "title"}
	quantityAliases = []string{"quantity", "qty", "count", "stock", "amount"}
)

// MySQLMirror implements the remote mirror over a MySQL table whose column
// headers are resolved against the alias lists at construction time.
type MySQLMirror struct {
	db    *sql.DB
	table string

	identityCol string
	nameCol     string
	quantityCol string
}

func NewMySQLMirror(ctx context.Context, db *sql.DB, table string) (*MySQLMirror, error) {
	m := &MySQLMirror{db: db, table: table}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s` LIMIT 0", table))
	if err != nil {
		return nil, fmt.Errorf("inspect mirror table %q: %w", table, err)
	}
	columns, err := rows.Columns()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("read mirror columns: %w", err)
	}

	m.identityCol = resolveColumn(columns, identityAliases)
	m.nameCol = resolveColumn(columns, nameAliases)
	m.quantityCol = resolveColumn(columns, quantityAliases)
	if m.identityCol == "" || m.nameCol == "" || m.quantityCol == "" {
		return nil, fmt.Errorf("%w: table %q has columns %v", ErrColumnsUnresolved, table, columns)
	}
	return m, nil
}

// resolveColumn returns the first column matching an alias, case-insensitive,
// in alias priority order.
func resolveColumn(columns, aliases []string) string {
	for _, alias := range aliases {
		for _, col := range columns {
			if strings.EqualFold(col, alias) {
				return col
			}
		}
	}
	return ""
}

func (m *MySQLMirror) LoadAll(ctx context.Context) ([]port.MirrorRow, error) {
	query := fmt.Sprintf("SELECT `%s`, `%s`, `%s` FROM `%s`",
		m.identityCol, m.nameCol, m.quantityCol, m.table)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load mirror rows: %w", err)
	}
	defer rows.Close()

	var out []port.MirrorRow
	for rows.Next() {
		var (
			identity sql.NullString
			name     sql.NullString
			quantity sql.NullInt64
		)
		if err := rows.Scan(&identity, &name, &quantity); err != nil {
			return nil, fmt.Errorf("scan mirror row: %w", err)
		}
		if !identity.Valid || identity.String == "" {
			continue
		}
		out = append(out, port.MirrorRow{
			Identity: identity.String,
			Name:     name.String,
			Quantity: int(quantity.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror rows: %w", err)
	}
	return out, nil
}

func (m *MySQLMirror) Upsert(ctx context.Context, identity, name string, quantity int) error {
	query := fmt.Sprintf(
		"INSERT INTO `%s` (`%s`, `%s`, `%s`) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE `%s` = VALUES(`%s`), `%s` = VALUES(`%s`)",
		m.table, m.identityCol, m.nameCol, m.quantityCol,
		m.nameCol, m.nameCol, m.quantityCol, m.quantityCol,
	)
	if _, err := m.db.ExecContext(ctx, query, identity, name, quantity); err != nil {
		return fmt.Errorf("upsert mirror row %q: %w", identity, err)
	}
	return nil
}

func (m *MySQLMirror) Delete(ctx context.Context, identity string) error {
	query := fmt.Sprintf("DELETE FROM `%s` WHERE `%s` = ?", m.table, m.identityCol)
	if _, err := m.db.ExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("delete mirror row %q: %w", identity, err)
	}
	return nil
}
