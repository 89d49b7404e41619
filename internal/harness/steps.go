package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/model"
)

// stepFunc executes one scenario step and returns its traced result.
type stepFunc func(ctx context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error)

// steps maps step names to their implementation.
var steps map[string]stepFunc

func init() {
	steps = map[string]stepFunc{
		"publish":        publish,
		"network":        network,
		"advance":        advance,
		"login":          dispatch(loginAction),
		"logout":         dispatch(func(map[string]interface{}) (engine.Action, error) { return engine.Logout{}, nil }),
		"sync":           syncStep,
		"start":          dispatch(chapterAction(func(ch string) engine.Action { return engine.StartChapter{ChapterID: ch} })),
		"open-dashboard": dispatch(func(map[string]interface{}) (engine.Action, error) { return engine.OpenDashboard{}, nil }),
		"answer":         dispatch(answerAction),
		"submit-quiz":    dispatch(chapterAction(func(ch string) engine.Action { return engine.SubmitQuiz{ChapterID: ch} })),
		"hint":           dispatch(chapterAction(func(ch string) engine.Action { return engine.UseHint{ChapterID: ch} })),
		"duration":       dispatch(durationAction),
		"feedback":       dispatch(feedbackAction),
		"video":          dispatch(videoAction),
		"lesson":         dispatch(lessonAction),
		"submit":         submitStep,
		"retry":          retryStep,
		"dashboard":      dashboardStep,
		"notifications":  notificationsStep,
	}
}

func str(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q must be a string, got %T", key, v)
	}
	return s, nil
}

func integer(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("arg %q must be an integer, got %T", key, v)
	}
	return n, nil
}

func flag(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func dispatch(build func(map[string]interface{}) (engine.Action, error)) stepFunc {
	return func(ctx context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error) {
		a, err := build(args)
		if err != nil {
			return nil, err
		}
		return nil, h.engine.Dispatch(ctx, a)
	}
}

func chapterAction(build func(chapter string) engine.Action) func(map[string]interface{}) (engine.Action, error) {
	return func(args map[string]interface{}) (engine.Action, error) {
		ch, err := str(args, "chapter")
		if err != nil {
			return nil, err
		}
		return build(ch), nil
	}
}

func publish(_ context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error) {
	name, err := str(args, "catalog")
	if err != nil {
		return nil, err
	}
	cat, err := h.scenario.catalog(name)
	if err != nil {
		return nil, err
	}
	h.loader.Catalog = cat
	h.loader.Err = nil
	return nil, nil
}

// network takes the catalog server or the submission endpoint up or down.
func network(_ context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error) {
	for key, v := range args {
		state, _ := v.(string)
		if state != "up" && state != "down" {
			return nil, fmt.Errorf("network %s must be up or down", key)
		}
		switch key {
		case "catalog":
			if state == "down" {
				h.loader.Err = fmt.Errorf("catalog server unreachable")
			} else {
				h.loader.Err = nil
			}
		case "submission":
			h.sink.down = state == "down"
		default:
			return nil, fmt.Errorf("unknown network %q", key)
		}
	}
	return nil, nil
}

func advance(_ context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error) {
	s, err := str(args, "by")
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	h.clock.Advance(d)
	return nil, nil
}

func loginAction(args map[string]interface{}) (engine.Action, error) {
	student, err := str(args, "student")
	if err != nil {
		return nil, err
	}
	class, err := str(args, "class")
	if err != nil {
		return nil, err
	}
	return engine.Login{Student: student, ClassID: class}, nil
}

func answerAction(args map[string]interface{}) (engine.Action, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	q, err := str(args, "question")
	if err != nil {
		return nil, err
	}
	a, err := answerArg(args)
	if err != nil {
		return nil, err
	}
	return engine.AnswerQuestion{ChapterID: ch, QuestionID: q, Answer: a}, nil
}

func durationAction(args map[string]interface{}) (engine.Action, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	part, err := str(args, "part")
	if err != nil {
		return nil, err
	}
	secs, err := integer(args, "seconds")
	if err != nil {
		return nil, err
	}
	return engine.AddDuration{ChapterID: ch, Part: engine.Part(part), Seconds: secs}, nil
}

func feedbackAction(args map[string]interface{}) (engine.Action, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	ex, err := str(args, "exercise")
	if err != nil {
		return nil, err
	}
	v, err := str(args, "value")
	if err != nil {
		return nil, err
	}
	return engine.SetExerciseFeedback{ChapterID: ch, ExerciseID: ex, Feedback: model.Feedback(v)}, nil
}

func videoAction(args map[string]interface{}) (engine.Action, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	v, err := str(args, "video")
	if err != nil {
		return nil, err
	}
	return engine.MarkVideoWatched{ChapterID: ch, VideoID: v}, nil
}

func lessonAction(args map[string]interface{}) (engine.Action, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	a := engine.UpdateLesson{ChapterID: ch, IsRead: flag(args, "read")}
	for key, dst := range map[string]*int{
		"scroll":     &a.ScrollProgress,
		"paragraphs": &a.CompletedParagraphs,
		"sections":   &a.CompletedSections,
		"checklist":  &a.ChecklistPercentage,
	} {
		if *dst, err = integer(args, key); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func syncStep(ctx context.Context, h *Harness, _ map[string]interface{}) (map[string]interface{}, error) {
	report, err := h.engine.Sync(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]interface{}, 0, len(report.Events))
	for _, ev := range report.Events {
		events = append(events, string(ev.Kind)+":"+ev.ChapterID)
	}
	out := map[string]interface{}{
		"added":      nonNil(report.Added),
		"updated":    nonNil(report.Updated),
		"removed":    nonNil(report.Removed),
		"events":     events,
		"redirected": report.Redirected,
	}
	return out, nil
}

func submitStep(ctx context.Context, h *Harness, args map[string]interface{}) (map[string]interface{}, error) {
	ch, err := str(args, "chapter")
	if err != nil {
		return nil, err
	}
	receipt, err := h.engine.SubmitWork(ctx, ch)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"document": receipt.DocumentID,
		"version":  receipt.Version,
		"attempts": receipt.Attempts,
	}, nil
}

// retryStep retries every pending submission, oldest first.
func retryStep(ctx context.Context, h *Harness, _ map[string]interface{}) (map[string]interface{}, error) {
	keys, err := h.pendingKeys(ctx)
	if err != nil {
		return nil, err
	}
	delivered := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		receipt, err := h.engine.RetryPending(ctx, key)
		if err != nil {
			return nil, err
		}
		delivered = append(delivered, receipt.ChapterID)
	}
	return map[string]interface{}{"delivered": delivered}, nil
}

func dashboardStep(ctx context.Context, h *Harness, _ map[string]interface{}) (map[string]interface{}, error) {
	summaries, err := h.engine.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]interface{}, 0, len(summaries))
	for _, s := range summaries {
		row := fmt.Sprintf("%s %s %d%%", s.ChapterID, s.Status, s.Percent)
		var marks []string
		if s.Complete {
			marks = append(marks, "complete")
		}
		if s.CanSubmit {
			marks = append(marks, "can-submit")
		}
		if s.Outdated {
			marks = append(marks, "outdated")
		}
		if len(marks) > 0 {
			row += " " + strings.Join(marks, ",")
		}
		rows = append(rows, row)
	}
	return map[string]interface{}{"chapters": rows}, nil
}

func notificationsStep(ctx context.Context, h *Harness, _ map[string]interface{}) (map[string]interface{}, error) {
	notes, err := h.engine.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]interface{}, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, string(n.Type)+" "+n.ID)
	}
	return map[string]interface{}{"visible": ids}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
