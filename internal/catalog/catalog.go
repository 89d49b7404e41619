package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/pedago/internal/model"
)

// ErrUnknownClass is returned when the manifest has no entry for a class.
var ErrUnknownClass = errors.New("unknown class")

// Loader fetches the catalog of a class.
type Loader interface {
	Load(ctx context.Context, classID string) (*model.Catalog, error)
}

// Manifest lists the ordered chapter ids of each class.
type Manifest struct {
	Classes map[string][]string `json:"classes" yaml:"classes"`
}

// chapterIDs returns the ordered ids for classID.
func (m *Manifest) chapterIDs(classID string) ([]string, error) {
	ids, ok := m.Classes[classID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownClass, classID)
	}
	return ids, nil
}

// assemble validates the documents and builds the catalog.
func assemble(classID string, ids []string, defs []*model.ChapterDefinition) (*model.Catalog, error) {
	cat := &model.Catalog{
		ClassID:  classID,
		Order:    make([]string, 0, len(ids)),
		Chapters: make(map[string]*model.ChapterDefinition, len(ids)),
	}
	for i, id := range ids {
		def := defs[i]
		if def.ID == "" {
			def.ID = id
		}
		if def.ID != id {
			return nil, &ValidationError{ChapterID: id, Problems: []string{fmt.Sprintf("document declares id %q", def.ID)}}
		}
		if def.Class == "" {
			def.Class = classID
		}
		if err := Validate(def); err != nil {
			return nil, err
		}
		if _, dup := cat.Chapters[id]; dup {
			return nil, &ValidationError{ChapterID: id, Problems: []string{"listed twice in manifest"}}
		}
		cat.Order = append(cat.Order, id)
		cat.Chapters[id] = def
	}
	return cat, nil
}
