package reconcile

import "github.com/roach88/pedago/internal/model"

// EventKind categorizes reconciliation events.
type EventKind string

const (
	// EventNewChapter: an active chapter appeared that the student has
	// not started.
	EventNewChapter EventKind = "new_chapter"

	// EventContentUpdated: the chapter's version stamp changed.
	EventContentUpdated EventKind = "content_updated"

	// EventQuizIncomplete: a submitted quiz gained questions and was
	// reopened.
	EventQuizIncomplete EventKind = "quiz_needs_completion"

	// EventResubmit: submitted work must be sent again.
	EventResubmit EventKind = "resubmission_required"
)

// Event is a reconciliation fact plus the notification it produces.
type Event struct {
	Kind      EventKind
	ChapterID string
	Version   string

	// Added is the number of new questions for EventQuizIncomplete.
	Added int

	Notification model.Notification
}
