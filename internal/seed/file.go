package seed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func fileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	}
	return ""
}

// FileSource reads a YAML or JSON list of records.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path. The extension picks the format.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the file.
func (f *FileSource) Fetch(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read seed file %s", f.path)
	}

	var recs []core.Record
	switch fileFormat(f.path) {
	case formatYAML:
		err = yaml.Unmarshal(data, &recs)
	case formatJSON:
		err = json.Unmarshal(data, &recs)
	default:
		return nil, errors.Wrapf(core.ErrInvalidConfig, "unsupported seed file extension: %s", f.path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse seed file %s", f.path)
	}
	for i, rec := range recs {
		if rec == nil {
			return nil, errors.Wrapf(core.ErrValidation, "%s: entry %d is empty", f.path, i)
		}
	}
	return recs, nil
}

func (f *FileSource) Close() error { return nil }
