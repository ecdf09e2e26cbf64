package service

import (
	"os"
	"path/filepath"

	"github.com/joeblew999/plat-sld/internal/source"
)

// SourceService lists the configured source files.
type SourceService struct {
	sources SourcesConfig
}

// NewSourceService creates a new source service.
func NewSourceService(sources SourcesConfig) *SourceService {
	return &SourceService{sources: sources}
}

// List returns every configured source. Files inside GeoJSON and SLD
// directories are listed one by one; missing files are listed without a
// size.
func (s *SourceService) List() ([]SourceFile, error) {
	var files []SourceFile
	add := func(path, role string) {
		kind, ok := source.FileKind(path)
		if !ok || (role == "override" && kind != "SLD") {
			return
		}
		if role == "data" && kind == "SLD" {
			role = "style"
		}
		size, _ := source.FileSize(path)
		files = append(files, SourceFile{
			Name:     filepath.Base(path),
			Path:     path,
			Size:     size,
			FileType: kind,
			Role:     role,
		})
	}
	addDir := func(dir, role string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				add(filepath.Join(dir, entry.Name()), role)
			}
		}
		return nil
	}

	for _, path := range s.sources.GeoPackages {
		add(path, "data")
	}
	for _, dir := range s.sources.GeoJSONDirs {
		if err := addDir(dir, "data"); err != nil {
			return nil, err
		}
	}
	for _, dir := range s.sources.SLDDirs {
		if err := addDir(dir, "override"); err != nil {
			return nil, err
		}
	}
	for _, path := range s.sources.SLDFiles {
		add(path, "override")
	}
	return files, nil
}
