package model

import "slices"

// Profile identifies the single student of a storage instance.
type Profile struct {
	Name    string `json:"name"`
	ClassID string `json:"class_id"`
}

// IsZero reports whether nobody is logged in.
func (p Profile) IsZero() bool {
	return p.Name == "" && p.ClassID == ""
}

// ViewName is the navigation target of the client.
type ViewName string

const (
	ViewLogin     ViewName = "login"
	ViewDashboard ViewName = "dashboard"
	ViewChapter   ViewName = "chapter"
)

// View is the persisted navigation state.
type View struct {
	Name      ViewName `json:"name"`
	ChapterID string   `json:"chapter_id,omitempty"`
}

// AppState is the single persisted blob of the client.
type AppState struct {
	Profile         Profile       `json:"profile"`
	Progress        ProgressStore `json:"progress"`
	ChapterOrder    []string      `json:"chapter_order"`
	Versions        VersionMap    `json:"versions"`
	View            View          `json:"view"`
	ActiveChapterID string        `json:"active_chapter_id,omitempty"`
}

// NewAppState returns the first-run state.
func NewAppState() *AppState {
	return &AppState{
		Progress:     ProgressStore{},
		ChapterOrder: []string{},
		Versions:     VersionMap{},
		View:         View{Name: ViewLogin},
	}
}

// Normalize repairs nil collections and unknown values after decoding.
func (s *AppState) Normalize() {
	if s.Progress == nil {
		s.Progress = ProgressStore{}
	}
	for id, p := range s.Progress {
		if p == nil {
			delete(s.Progress, id)
			continue
		}
		p.ensureMaps()
		if p.Status != "" && !p.Status.Valid() {
			p.Status = ""
		}
	}
	if s.ChapterOrder == nil {
		s.ChapterOrder = []string{}
	}
	if s.Versions == nil {
		s.Versions = VersionMap{}
	}
	if s.View.Name == "" {
		s.View.Name = ViewLogin
		if !s.Profile.IsZero() {
			s.View.Name = ViewDashboard
		}
	}
}

// Clone returns a deep copy of the state.
func (s *AppState) Clone() *AppState {
	c := *s
	c.Progress = s.Progress.Clone()
	c.ChapterOrder = slices.Clone(s.ChapterOrder)
	if c.ChapterOrder == nil {
		c.ChapterOrder = []string{}
	}
	c.Versions = s.Versions.Clone()
	return &c
}
