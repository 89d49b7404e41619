package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pedago/internal/model"
)

// Supported chapter document extensions, in lookup order.
var chapterExtensions = []string{".yaml", ".yml", ".json", ".cue"}

// decodeChapter parses a chapter document according to its extension.
func decodeChapter(name string, data []byte) (*model.ChapterDefinition, error) {
	var def model.ChapterDefinition
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".cue":
		raw, err := cueToJSON(name, data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported document type", name)
	}
	return &def, nil
}

// cueToJSON evaluates a CUE chapter document. The document is either the
// chapter struct itself or wraps it in a top-level `chapter` field, which
// lets authors share constraints across chapters:
//
//	#Question: { id: string, type: *"mcq" | "ordering", ... }
//	chapter: { id: "C1", version: "2", quiz: [...#Question] }
func cueToJSON(name string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if wrapped := v.LookupPath(cue.ParsePath("chapter")); wrapped.Exists() {
		v = wrapped
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}
	return raw, nil
}

// decodeManifest parses a manifest in YAML or JSON.
func decodeManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	var err error
	if strings.EqualFold(filepath.Ext(name), ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &m, nil
}
