package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/store"
)

// PendingPrefix prefixes every pending-submission key.
const PendingPrefix = "pending_submission_"

// Storage is the durable storage pending records live in.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	PutIfAbsent(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]store.Entry, error)
}

// PendingKey builds the key of a pending record: prefix, creation time in
// Unix milliseconds, chapter id.
func PendingKey(at time.Time, chapterID string) string {
	return PendingPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "_" + chapterID
}

// ParsePendingKey splits a pending key into its creation time and chapter.
func ParsePendingKey(key string) (createdAt int64, chapterID string, err error) {
	rest, ok := strings.CutPrefix(key, PendingPrefix)
	if !ok {
		return 0, "", fmt.Errorf("not a pending key: %q", key)
	}
	ts, chapterID, ok := strings.Cut(rest, "_")
	if !ok || chapterID == "" {
		return 0, "", fmt.Errorf("malformed pending key: %q", key)
	}
	createdAt, err = strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed pending key %q: %w", key, err)
	}
	return createdAt, chapterID, nil
}

// ListPending enumerates pending records, oldest first. Records whose key
// or document cannot be decoded are skipped with a warning.
func ListPending(ctx context.Context, s Storage) ([]model.PendingSubmission, error) {
	entries, err := s.List(ctx, PendingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	out := make([]model.PendingSubmission, 0, len(entries))
	for _, e := range entries {
		createdAt, chapterID, err := ParsePendingKey(e.Key)
		if err != nil {
			slog.Warn("skipping pending submission", "key", e.Key, "error", err)
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(e.Value), &doc); err != nil {
			slog.Warn("skipping pending submission", "key", e.Key, "error", err)
			continue
		}
		out = append(out, model.PendingSubmission{
			Key:       e.Key,
			ChapterID: chapterID,
			Version:   doc.Version,
			CreatedAt: createdAt,
		})
	}
	return out, nil
}

func loadPending(ctx context.Context, s Storage, key string) (*Document, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load pending %q: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPendingNotFound, key)
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("load pending %q: %w", key, err)
	}
	return &doc, nil
}
