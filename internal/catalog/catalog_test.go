package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pedago/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDirLoader_MixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), `
classes:
  tcs: [C1, C2, C3]
  1bac: [C3]
`)
	writeFile(t, filepath.Join(dir, "chapters", "C1.yaml"), `
id: C1
title: Les ensembles
version: "1"
is_active: true
quiz:
  - id: q1
    type: mcq
    options: [a, b, c]
    correct_answer: b
  - id: q2
    type: ordering
    steps: [s1, s2, s3]
    correct_order: [s1, s2, s3]
exercises:
  - id: e1
    title: Exercice 1
videos:
  - id: v1
    title: Intro
lesson:
  title: Cours
  sections: 2
  paragraphs: 10
session_dates:
  - 2026-03-02T14:00:00Z
`)
	writeFile(t, filepath.Join(dir, "chapters", "C2.json"), `{
  "id": "C2", "title": "Logique", "version": "7", "is_active": false,
  "quiz": [{"id": "q1", "options": ["x", "y"], "correct_answer": "x"}],
  "exercises": []
}`)
	writeFile(t, filepath.Join(dir, "chapters", "C3.cue"), `
#Question: {
	id:    string
	type:  *"mcq" | "ordering"
	options: [...string]
	correct_answer?: string
}

chapter: {
	id:        "C3"
	title:     "Fonctions"
	version:   "2024-11-02"
	is_active: true
	quiz: [
		#Question & {id: "q1", options: ["oui", "non"], correct_answer: "oui"},
	]
	exercises: [{id: "e1", title: "Exercice"}]
}
`)

	cat, err := NewDirLoader(dir).Load(context.Background(), "tcs")
	require.NoError(t, err)

	assert.Equal(t, "tcs", cat.ClassID)
	assert.Equal(t, []string{"C1", "C2", "C3"}, cat.Order)
	require.Len(t, cat.Chapters, 3)

	c1 := cat.Chapters["C1"]
	assert.Equal(t, "1", c1.Version)
	assert.True(t, c1.IsActive)
	assert.True(t, c1.HasLesson())
	assert.True(t, c1.HasVideos())
	assert.Equal(t, model.QuestionOrdering, c1.Quiz[1].Type)
	require.Len(t, c1.SessionDates, 1)
	assert.Equal(t, 14, c1.SessionDates[0].Hour())
	assert.Equal(t, "tcs", c1.Class)

	assert.Equal(t, "7", cat.Chapters["C2"].Version)
	assert.False(t, cat.Chapters["C2"].IsActive)

	c3 := cat.Chapters["C3"]
	assert.Equal(t, "2024-11-02", c3.Version)
	assert.Equal(t, model.QuestionMCQ, c3.Quiz[0].Type)
	assert.Equal(t, "oui", c3.Quiz[0].CorrectAnswer)
}

func TestDirLoader_UnknownClass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), "classes:\n  tcs: []\n")

	_, err := NewDirLoader(dir).Load(context.Background(), "2bac")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownClass))
}

func TestDirLoader_MissingChapterFailsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), "classes:\n  tcs: [C1, C9]\n")
	writeFile(t, filepath.Join(dir, "chapters", "C1.json"), `{"id":"C1","version":"1","quiz":[]}`)

	cat, err := NewDirLoader(dir).Load(context.Background(), "tcs")
	require.Error(t, err)
	assert.Nil(t, cat)
	assert.Contains(t, err.Error(), "C9")
}

func TestDirLoader_ManifestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), "clases:\n  tcs: [C1]\n")

	_, err := NewDirLoader(dir).Load(context.Background(), "tcs")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     model.ChapterDefinition
		wantErr string
	}{
		{
			name: "valid",
			def:  model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{{ID: "q1"}}},
		},
		{
			name:    "missing version",
			def:     model.ChapterDefinition{ID: "C1"},
			wantErr: "Version",
		},
		{
			name:    "duplicate question",
			def:     model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{{ID: "q1"}, {ID: "q1"}}},
			wantErr: `duplicate question id "q1"`,
		},
		{
			name:    "question without id",
			def:     model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{{Prompt: "?"}}},
			wantErr: "ID",
		},
		{
			name: "ordering without steps",
			def: model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{
				{ID: "q1", Type: model.QuestionOrdering},
			}},
			wantErr: "has no steps",
		},
		{
			name: "answer key matches options",
			def: model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{
				{ID: "q1", Options: []string{"oui", "non"}, CorrectAnswer: " non"},
				{ID: "q2", Type: model.QuestionOrdering, Steps: []string{"a", "b", "b"}, CorrectOrder: []string{"b", "a", "b"}},
				{ID: "q3", CorrectAnswer: "libre"},
			}},
		},
		{
			name: "answer not among options",
			def: model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{
				{ID: "q1", Options: []string{"oui", "non"}, CorrectAnswer: "peut-être"},
			}},
			wantErr: `correct answer "peut-être" is not an option`,
		},
		{
			name: "order with unknown step",
			def: model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{
				{ID: "q1", Type: model.QuestionOrdering, Steps: []string{"a", "b"}, CorrectOrder: []string{"a", "c"}},
			}},
			wantErr: "not a permutation of its steps",
		},
		{
			name: "order missing a step",
			def: model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{
				{ID: "q1", Type: model.QuestionOrdering, Steps: []string{"a", "b", "c"}, CorrectOrder: []string{"c", "a"}},
			}},
			wantErr: "not a permutation of its steps",
		},
		{
			name:    "unknown question type",
			def:     model.ChapterDefinition{ID: "C1", Version: "1", Quiz: []model.Question{{ID: "q1", Type: "essay"}}},
			wantErr: "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPLoader_Load(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"classes":{"tcs":["C1","C2"]}}`))
	})
	mux.HandleFunc("/chapters/C1.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Write([]byte(`{"id":"C1","version":"3","is_active":true,"quiz":[{"id":"q1"}]}`))
	})
	mux.HandleFunc("/chapters/C2.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"id":"C2","version":"1","quiz":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cat, err := NewHTTPLoader(srv.URL+"/", srv.Client()).Load(context.Background(), "tcs")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, cat.Order)
	assert.Equal(t, "3", cat.Chapters["C1"].Version)
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPLoader_ChapterFailureFailsLoad(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"classes":{"tcs":["C1","C2"]}}`))
	})
	mux.HandleFunc("/chapters/C1.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"C1","version":"3","quiz":[]}`))
	})
	mux.HandleFunc("/chapters/C2.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cat, err := NewHTTPLoader(srv.URL, srv.Client()).Load(context.Background(), "tcs")
	require.Error(t, err)
	assert.Nil(t, cat)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNewLoader_PicksByScheme(t *testing.T) {
	assert.IsType(t, &HTTPLoader{}, NewLoader("https://example.org/catalog", nil))
	assert.IsType(t, &DirLoader{}, NewLoader("./catalog", nil))
}
