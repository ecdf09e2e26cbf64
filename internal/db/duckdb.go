package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
	// Extensions are installed and loaded on open. Nil loads
	// DefaultExtensions.
	Extensions []string
}

// DefaultExtensions read GeoPackage geometry (spatial) and the GeoPackage
// SQLite container itself (sqlite).
var DefaultExtensions = []string{"spatial", "sqlite"}

// Open opens a DuckDB connection and loads the configured extensions. A
// failed extension load is logged, not returned: plain tables still work.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ATTACHed databases visible to every query.
	conn.SetMaxOpenConns(1)

	extensions := cfg.Extensions
	if extensions == nil {
		extensions = DefaultExtensions
	}
	for _, ext := range extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			slog.Warn("duckdb extension not loaded", "extension", ext, "error", err)
		}
	}
	return conn, nil
}

// Tables lists the tables of the main database.
func Tables(conn *sql.DB) ([]string, error) {
	rows, err := conn.Query("SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Rows scans every row of rows into column-keyed maps.
func Rows(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return columns, results, rows.Err()
}
