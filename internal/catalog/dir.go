package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/pedago/internal/model"
)

// Manifest file names, in lookup order.
var manifestNames = []string{"manifest.yaml", "manifest.yml", "manifest.json"}

// DirLoader loads a catalog from a local directory.
type DirLoader struct {
	Root string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Root: dir}
}

// Load reads the manifest and every chapter document of classID.
func (l *DirLoader) Load(ctx context.Context, classID string) (*model.Catalog, error) {
	manifest, err := l.readManifest()
	if err != nil {
		return nil, err
	}
	ids, err := manifest.chapterIDs(classID)
	if err != nil {
		return nil, err
	}

	defs := make([]*model.ChapterDefinition, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		def, err := l.readChapter(id)
		if err != nil {
			return nil, err
		}
		defs[i] = def
	}
	return assemble(classID, ids, defs)
}

func (l *DirLoader) readManifest() (*Manifest, error) {
	for _, name := range manifestNames {
		path := filepath.Join(l.Root, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		return decodeManifest(path, data)
	}
	return nil, fmt.Errorf("read manifest: no manifest in %s", l.Root)
}

func (l *DirLoader) readChapter(id string) (*model.ChapterDefinition, error) {
	for _, ext := range chapterExtensions {
		path := filepath.Join(l.Root, "chapters", id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read chapter %q: %w", id, err)
		}
		return decodeChapter(path, data)
	}
	return nil, fmt.Errorf("read chapter %q: no document in %s", id, filepath.Join(l.Root, "chapters"))
}
