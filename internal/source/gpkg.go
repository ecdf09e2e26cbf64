package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// GeoPackageOptions configure LoadGeoPackage.
type GeoPackageOptions struct {
	// TargetCRS is the map projection code (e.g. "EPSG:3857"). Tables in a
	// different EPSG CRS are transformed on read. Empty or non-EPSG codes
	// keep the stored coordinates.
	TargetCRS string
	Logger    *slog.Logger
}

// geometryColumn is the column ST_Read names the feature geometry.
const geometryColumn = "geom"

// LoadGeoPackage reads every feature table of the GeoPackage at path, and
// the SLD documents QGIS stores in its layer_styles table, through conn.
// conn needs the spatial and sqlite DuckDB extensions.
//
// A table with several stored styles uses the one flagged useAsDefault, else
// the last one stored.
func LoadGeoPackage(ctx context.Context, conn *sql.DB, path string, opts GeoPackageOptions) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alias := "gpkg_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("ATTACH %s AS %s (TYPE sqlite, READ_ONLY)", literal(path), alias)); err != nil {
		return nil, fmt.Errorf("attaching geopackage %s: %w", path, err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "DETACH "+alias); err != nil {
			logger.Warn("detach failed", "path", path, "error", err)
		}
	}()

	set := newSet(path)
	tables, err := featureTables(ctx, conn, alias)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		src, err := readFeatures(ctx, conn, path, t, opts.TargetCRS)
		if err != nil {
			return nil, fmt.Errorf("reading table %q: %w", t.name, err)
		}
		set.Tables[t.name] = src
	}

	styles, err := layerStyles(ctx, conn, alias)
	if err != nil {
		return nil, err
	}
	set.Styles = styles
	logger.Info("geopackage loaded", "path", path, "summary", set.Summary())
	return set, nil
}

type featureTable struct {
	name string
	crs  string
}

func featureTables(ctx context.Context, conn *sql.DB, alias string) ([]featureTable, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.table_name, s.organization, s.organization_coordsys_id
		FROM %[1]s.gpkg_contents c
		LEFT JOIN %[1]s.gpkg_spatial_ref_sys s ON s.srs_id = c.srs_id
		WHERE c.data_type = 'features'
		ORDER BY c.table_name`, alias))
	if err != nil {
		return nil, fmt.Errorf("listing geopackage tables: %w", err)
	}
	defer rows.Close()

	var tables []featureTable
	for rows.Next() {
		var (
			t   featureTable
			org sql.NullString
			id  sql.NullInt64
		)
		if err := rows.Scan(&t.name, &org, &id); err != nil {
			return nil, err
		}
		if org.Valid && id.Valid && strings.EqualFold(org.String, "EPSG") {
			t.crs = "EPSG:" + strconv.FormatInt(id.Int64, 10)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func readFeatures(ctx context.Context, conn *sql.DB, path string, t featureTable, targetCRS string) (*maprt.VectorSource, error) {
	geom := geometryColumn
	if t.crs != "" && strings.HasPrefix(strings.ToUpper(targetCRS), "EPSG:") && !strings.EqualFold(t.crs, targetCRS) {
		geom = fmt.Sprintf("ST_Transform(%s, %s, %s, always_xy := true)", geometryColumn, literal(t.crs), literal(targetCRS))
	}
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT CAST(ST_AsGeoJSON(%s) AS VARCHAR) AS __geometry, * EXCLUDE (%s) FROM ST_Read(%s, layer = %s)",
		geom, geometryColumn, literal(path), literal(t.name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var geomJSON sql.NullString
		values := make([]any, len(columns)-1)
		dest := make([]any, len(columns))
		dest[0] = &geomJSON
		for i := range values {
			dest[i+1] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if !geomJSON.Valid {
			continue
		}
		g, err := geojson.UnmarshalGeometry([]byte(geomJSON.String))
		if err != nil {
			return nil, err
		}
		f := geojson.NewFeature(g.Geometry())
		for i, col := range columns[1:] {
			if v := property(values[i]); v != nil {
				f.Properties[col] = v
			}
		}
		fc.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return maprt.NewVectorSource(fc), nil
}

func layerStyles(ctx context.Context, conn *sql.DB, alias string) (map[string][]byte, error) {
	styles := map[string][]byte{}
	var n int
	err := conn.QueryRowContext(ctx,
		"SELECT count(*) FROM duckdb_tables() WHERE database_name = ? AND table_name = 'layer_styles'",
		alias).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("looking up layer_styles: %w", err)
	}
	if n == 0 {
		return styles, nil
	}

	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT f_table_name, styleSLD
		FROM %s.layer_styles
		WHERE styleSLD IS NOT NULL
		ORDER BY coalesce(useAsDefault, false), id`, alias))
	if err != nil {
		return nil, fmt.Errorf("reading layer_styles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var table, sld string
		if err := rows.Scan(&table, &sld); err != nil {
			return nil, err
		}
		styles[table] = []byte(sld)
	}
	return styles, rows.Err()
}

// property converts a scanned column value into a GeoJSON property value.
func property(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case *big.Int:
		return v.String()
	case interface{ Float64() float64 }:
		return v.Float64()
	default:
		return v
	}
}

// literal quotes s as an SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
