package cms

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceRecord is a raw record as returned by a CollectionSource.
type SourceRecord struct {
	ID     string
	Path   string
	Record Record
}

// CollectionSource supplies raw records for the collection tier.
type CollectionSource interface {
	Name() string
	// Get returns ErrNotFound when the record does not exist.
	Get(ctx context.Context, collection, id string) (SourceRecord, error)
	List(ctx context.Context, collection string) ([]SourceRecord, error)
}

var recordExtensions = []string{".yml", ".yaml", ".json"}

// DirSource reads <dir>/<collection>/<id>.{yml,yaml,json}.
type DirSource struct {
	dir string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: strings.TrimSpace(dir)}
}

func (s *DirSource) Name() string { return "dir" }

func (s *DirSource) Get(ctx context.Context, collection, id string) (SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return SourceRecord{}, err
	}
	id = sanitizeSlug(id)
	if id == "" {
		return SourceRecord{}, ErrNotFound
	}
	for _, ext := range recordExtensions {
		file := filepath.Join(s.dir, collection, id+ext)
		rec, err := readRecordFile(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return SourceRecord{}, err
		}
		return SourceRecord{ID: id, Path: filepath.ToSlash(file), Record: rec}, nil
	}
	return SourceRecord{}, ErrNotFound
}

func (s *DirSource) List(ctx context.Context, collection string) ([]SourceRecord, error) {
	files, err := listRecordFiles(filepath.Join(s.dir, collection))
	if err != nil {
		return nil, err
	}
	out := make([]SourceRecord, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := readRecordFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, SourceRecord{ID: recordID(file), Path: filepath.ToSlash(file), Record: rec})
	}
	return out, nil
}

// readRecordFile decodes a YAML or JSON mapping.
func readRecordFile(file string) (Record, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return decodeRecord(file, data)
}

func decodeRecord(name string, data []byte) (Record, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cms: decode %s: %w", name, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return Record(raw), nil
}

// listRecordFiles returns record files in dir sorted by name. A missing
// directory yields no files.
func listRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if hasRecordExtension(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasRecordExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range recordExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func recordID(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// relativePath renders file as /<root base>/<rel> for display and logging.
func relativePath(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return "/" + filepath.ToSlash(filepath.Join(filepath.Base(root), rel))
}
