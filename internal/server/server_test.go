package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mapYAML = `
title: Server map
projection: metric
dataLayers:
  - table: sites
sources:
  geojsonDirs: [data]
`

const sitesStyle = `<StyledLayerDescriptor xmlns="http://www.opengis.net/sld" version="1.0.0"><NamedLayer><Name>sites</Name><UserStyle><FeatureTypeStyle>` +
	`<Rule><PointSymbolizer><Graphic><Mark><WellKnownName>circle</WellKnownName></Mark><Size>6</Size></Graphic></PointSymbolizer></Rule>` +
	`</FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`

func newServer(t *testing.T, withMap bool) *Server {
	t.Helper()
	cfg := Config{
		Host:         "localhost",
		Port:         "8087",
		DBExtensions: []string{},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if withMap {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "map.yaml"), []byte(mapYAML), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "sites.geojson"),
			[]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]}`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "sites.sld"), []byte(sitesStyle), 0o644))
		cfg.ConfigPath = filepath.Join(dir, "map.yaml")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	go srv.Run(ctx)
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewBadConfig(t *testing.T) {
	_, err := New(context.Background(), Config{
		ConfigPath:   filepath.Join(t.TempDir(), "missing.yaml"),
		DBExtensions: []string{},
	})
	assert.Error(t, err)
}

func TestServerWithoutMap(t *testing.T) {
	srv := newServer(t, false)
	assert.Nil(t, srv.Map())

	rec := get(srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no map loaded")
	assert.Contains(t, rec.Header().Values("Link"), `</api/v1/layers>; rel="layers"`)

	assert.Equal(t, http.StatusNotFound, get(srv, "/nowhere").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/api/v1/info").Code)
}

func TestOpenAPI(t *testing.T) {
	srv := newServer(t, true)
	spec := srv.OpenAPI()
	assert.Equal(t, "plat-sld API", spec.Info.Title)
	for _, path := range []string{"/health", "/api/v1/layers/{id}/visible", "/api/v1/symbols/{id}/{consumer}", "/api/v1/panel/events"} {
		assert.Contains(t, spec.Paths, path)
	}
}

func TestPage(t *testing.T) {
	srv := newServer(t, true)
	rec := get(srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Server map</title>")
	assert.Contains(t, body, "/api/v1/panel/selector")
	assert.Contains(t, body, "1 tables, 1 features, 1 styles")
	assert.Contains(t, body, `<span id="view">1:`)
}

func TestPanelMove(t *testing.T) {
	srv := newServer(t, true)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/panel/view", strings.NewReader(`{"resolution": 2.8}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "#view")
	assert.Contains(t, body, `<span id="view">1:10000 `)
	assert.Contains(t, body, `"success":"View moved"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/panel/view", strings.NewReader(`{"resolution": -1}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"success"`)
	assert.Contains(t, rec.Body.String(), `"error":"`)
}

func TestPanelStreams(t *testing.T) {
	srv := newServer(t, true)

	rec := get(srv, "/api/v1/panel/selector")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rec.Body.String(), "datastar-patch-elements")
	assert.Contains(t, rec.Body.String(), "#selector")

	rec = get(srv, "/api/v1/panel/legend")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "legend-table")
}

func TestPanelVisibleAndEvents(t *testing.T) {
	srv := newServer(t, true)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	var layers []struct {
		ID      int  `json:"id"`
		Visible bool `json:"visible"`
	}
	rec := get(srv, "/api/v1/layers")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layers))
	require.Len(t, layers, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/panel/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	changed := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), "map-changed") {
				close(changed)
				return
			}
		}
	}()

	visible := false
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		body := fmt.Sprintf(`{"layer": %d, "visible": %t}`, layers[0].ID, visible)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/panel/visible", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"error":"no`)
		assert.Contains(t, rec.Body.String(), `"success":"sites `)
		visible = !visible

		select {
		case <-changed:
			return
		case <-ctx.Done():
			t.Fatal("no map-changed event")
		case <-tick.C:
		}
	}
}
