package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/pedago/internal/model"
)

// StateKey is the fixed key of the application state blob.
const StateKey = "pedago_state"

// LoadState reads the application state.
//
// A missing blob yields first-run defaults. A corrupt blob is discarded:
// defaults are returned with discarded=true and no error. Only storage I/O
// failures are returned as errors.
func (s *Store) LoadState(ctx context.Context) (state *model.AppState, discarded bool, err error) {
	raw, ok, err := s.Get(ctx, StateKey)
	if err != nil {
		return nil, false, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return model.NewAppState(), false, nil
	}

	var st model.AppState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		slog.Warn("discarding corrupt state blob", "key", StateKey, "error", err)
		return model.NewAppState(), true, nil
	}
	st.Normalize()
	return &st, false, nil
}

// SaveState writes the application state blob.
func (s *Store) SaveState(ctx context.Context, state *model.AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save state: marshal: %w", err)
	}
	if err := s.Put(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
