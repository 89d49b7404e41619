package notify

import (
	"context"
	"fmt"

	"github.com/roach88/pedago/internal/model"
)

// Notifier combines generation with the durable log.
type Notifier struct {
	Log       *Log
	Generator *Generator
}

// NewNotifier creates a notifier over log.
func NewNotifier(log *Log, gen *Generator) *Notifier {
	if gen == nil {
		gen = NewGenerator()
	}
	return &Notifier{Log: log, Generator: gen}
}

// Refresh generates notifications for in, persists the new ones and returns
// the full visible list, newest first.
func (n *Notifier) Refresh(ctx context.Context, in Input) ([]model.Notification, error) {
	if _, err := n.Log.Merge(ctx, n.Generator.Generate(in)); err != nil {
		return nil, fmt.Errorf("refresh notifications: %w", err)
	}
	return n.Log.Read(ctx)
}
