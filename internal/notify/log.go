package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/pedago/internal/ident"
	"github.com/roach88/pedago/internal/model"
)

// LogKey is the storage key of the notification log.
const LogKey = "pedago_notifications"

const (
	// DefaultRetention is the read window of the log.
	DefaultRetention = 7 * 24 * time.Hour
	// DefaultCacheTTL bounds how long a parsed log is reused.
	DefaultCacheTTL = time.Minute
)

// KV is the durable storage the log lives in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Log is the persisted notification log.
type Log struct {
	kv        KV
	retention time.Duration
	ttl       time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cached *cacheEntry
	parses int
}

type cacheEntry struct {
	hash    string
	entries []model.Notification
	expires time.Time
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithRetention sets the read window.
func WithRetention(d time.Duration) LogOption {
	return func(l *Log) { l.retention = d }
}

// WithCacheTTL sets the read cache lifetime. Zero disables caching.
func WithCacheTTL(d time.Duration) LogOption {
	return func(l *Log) { l.ttl = d }
}

// WithNow sets the clock used for expiry and caching.
func WithNow(now func() time.Time) LogOption {
	return func(l *Log) { l.now = now }
}

// NewLog creates a log stored in kv.
func NewLog(kv KV, opts ...LogOption) *Log {
	l := &Log{
		kv:        kv,
		retention: DefaultRetention,
		ttl:       DefaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Read returns the entries younger than the retention window, newest first.
func (l *Log) Read(ctx context.Context) ([]model.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cached != nil && now.Before(l.cached.expires) {
		return l.visible(l.cached.entries, now), nil
	}

	raw, _, err := l.kv.Get(ctx, LogKey)
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	hash := ident.RawHash(ident.DomainCache, []byte(raw))

	var entries []model.Notification
	if l.cached != nil && l.cached.hash == hash {
		entries = l.cached.entries
	} else {
		entries = l.parse(raw)
	}
	if l.ttl > 0 {
		l.cached = &cacheEntry{hash: hash, entries: entries, expires: now.Add(l.ttl)}
	}
	return l.visible(entries, now), nil
}

// Merge adds the notifications whose id is not in the log yet and returns
// them. Entries already present are left untouched, expired or not.
func (l *Log) Merge(ctx context.Context, ns []model.Notification) ([]model.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	raw, _, err := l.kv.Get(ctx, LogKey)
	if err != nil {
		return nil, fmt.Errorf("merge notifications: %w", err)
	}
	entries := l.parse(raw)

	seen := make(map[string]bool, len(entries))
	for _, n := range entries {
		seen[n.ID] = true
	}
	var added []model.Notification
	for _, n := range ns {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		added = append(added, n)
	}
	if len(added) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(append(entries, added...))
	if err != nil {
		return nil, fmt.Errorf("merge notifications: marshal: %w", err)
	}
	if err := l.kv.Put(ctx, LogKey, string(data)); err != nil {
		return nil, fmt.Errorf("merge notifications: %w", err)
	}
	l.cached = nil

	slog.Debug("notifications merged", "added", len(added), "total", len(entries)+len(added))
	return added, nil
}

// Invalidate drops the read cache.
func (l *Log) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// parse decodes the stored blob. A corrupt blob reads as empty.
func (l *Log) parse(raw string) []model.Notification {
	l.parses++
	if raw == "" {
		return []model.Notification{}
	}
	var entries []model.Notification
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.Warn("discarding corrupt notification log", "key", LogKey, "error", err)
		return []model.Notification{}
	}
	return entries
}

func (l *Log) visible(entries []model.Notification, now time.Time) []model.Notification {
	cutoff := now.Add(-l.retention).UnixMilli()
	out := make([]model.Notification, 0, len(entries))
	for _, n := range entries {
		if n.Timestamp >= cutoff {
			out = append(out, n)
		}
	}
	model.SortNotifications(out)
	return out
}
