package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/status"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show every chapter with its status and progress",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.Dispatch(ctx, engine.OpenDashboard{}); err != nil {
					return s.out.Fail("dashboard unavailable", err)
				}
				summaries, err := s.engine.Dashboard(ctx)
				if err != nil {
					return s.out.Fail("dashboard unavailable", err)
				}
				return s.out.Emit(summaries, formatDashboard(summaries))
			})
		},
	}
}

func formatDashboard(summaries []status.Summary) string {
	if len(summaries) == 0 {
		return "No chapters yet. Run \"pedago sync\" first."
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAPTER\tTITLE\tSTATUS\tPROGRESS\tNOTES")
	for _, s := range summaries {
		var notes []string
		if !s.IsActive {
			notes = append(notes, "inactive")
		}
		if s.WorkSubmitted {
			notes = append(notes, "submitted")
		}
		if s.Outdated {
			notes = append(notes, "updated since submission")
		}
		if s.CanSubmit {
			notes = append(notes, "ready to submit")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", s.ChapterID, s.Title, s.Status, s.Percent, strings.Join(notes, ", "))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// chapterCommand builds a command taking a chapter id and a fixed number
// of further arguments, dispatching the action build returns.
func chapterCommand(rootOpts *RootOptions, use, short string, nargs int, build func(args []string) (engine.Action, error), done func(ctx context.Context, s *session, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := build(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid arguments", err)
			}
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.Dispatch(ctx, action); err != nil {
					return s.out.Fail(action.Name()+" rejected", err)
				}
				return done(ctx, s, args)
			})
		},
	}
}

// chapterState reports the stored progress of a chapter after an action.
func chapterState(message string) func(ctx context.Context, s *session, args []string) error {
	return func(ctx context.Context, s *session, args []string) error {
		def, p, err := s.chapter(ctx, args[0])
		if err != nil {
			return err
		}
		summary := status.Summarize(def, p)
		return s.out.Emit(summary, fmt.Sprintf("%s %s: %s, %d%%.", message, def.ID, summary.Status, summary.Percent))
	}
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	return chapterCommand(rootOpts, "start <chapter>", "Open a chapter and mark it in progress", 1,
		func(args []string) (engine.Action, error) {
			return engine.StartChapter{ChapterID: args[0]}, nil
		},
		chapterState("Chapter"))
}

// AnswerOptions holds flags for the answer command.
type AnswerOptions struct {
	*RootOptions
	Order bool
}

// NewAnswerCommand creates the answer command.
func NewAnswerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnswerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "answer <chapter> <question> <choice>|--order <step>...",
		Short: "Answer a quiz question",
		Long: `Answer a quiz question. A multiple choice question takes the chosen
option; an ordering question takes its steps in order with --order.

Examples:
  pedago answer C1 q1 "3/4"
  pedago answer C1 q2 --order s3 s1 s2`,
		Args: minArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer := model.Choice(args[2])
			if opts.Order {
				answer = model.Ordered(args[2:]...)
			} else if len(args) > 3 {
				return NewExitError(ExitCommandError, "several answers given: use --order for an ordering question")
			}
			action := engine.AnswerQuestion{ChapterID: args[0], QuestionID: args[1], Answer: answer}
			return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
				if err := s.engine.Dispatch(ctx, action); err != nil {
					return s.out.Fail("answer rejected", err)
				}
				_, p, err := s.chapter(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Emit(p.Quiz, fmt.Sprintf("Answer recorded. All answered: %t.", p.Quiz.AllAnswered))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Order, "order", false, "answer an ordering question with the given steps")

	return cmd
}

// NewSubmitQuizCommand creates the submit-quiz command.
func NewSubmitQuizCommand(rootOpts *RootOptions) *cobra.Command {
	return chapterCommand(rootOpts, "submit-quiz <chapter>", "Submit a fully answered quiz", 1,
		func(args []string) (engine.Action, error) {
			return engine.SubmitQuiz{ChapterID: args[0]}, nil
		},
		func(ctx context.Context, s *session, args []string) error {
			def, p, err := s.chapter(ctx, args[0])
			if err != nil {
				return err
			}
			total := len(def.Quiz)
			return s.out.Emit(map[string]int{"score": p.Quiz.Score, "questions": total},
				fmt.Sprintf("Quiz submitted: %d/%d.", p.Quiz.Score, total))
		})
}

// NewHintCommand creates the hint command.
func NewHintCommand(rootOpts *RootOptions) *cobra.Command {
	return chapterCommand(rootOpts, "hint <chapter>", "Record the use of a quiz hint", 1,
		func(args []string) (engine.Action, error) {
			return engine.UseHint{ChapterID: args[0]}, nil
		},
		chapterState("Hint recorded for"))
}

// NewFeedbackCommand creates the feedback command.
func NewFeedbackCommand(rootOpts *RootOptions) *cobra.Command {
	return chapterCommand(rootOpts, "feedback <chapter> <exercise> <facile|moyen|difficile|tres-difficile>",
		"Rate the difficulty of an exercise", 3,
		func(args []string) (engine.Action, error) {
			f, err := model.ParseFeedback(args[2])
			if err != nil {
				return nil, err
			}
			return engine.SetExerciseFeedback{ChapterID: args[0], ExerciseID: args[1], Feedback: f}, nil
		},
		chapterState("Feedback recorded for"))
}

// NewVideoCommand creates the video command.
func NewVideoCommand(rootOpts *RootOptions) *cobra.Command {
	return chapterCommand(rootOpts, "video <chapter> <video>", "Mark a chapter video as watched", 2,
		func(args []string) (engine.Action, error) {
			return engine.MarkVideoWatched{ChapterID: args[0], VideoID: args[1]}, nil
		},
		chapterState("Video recorded for"))
}

// LessonOptions holds flags for the lesson command.
type LessonOptions struct {
	*RootOptions
	Read       bool
	Scroll     int
	Paragraphs int
	Sections   int
	Checklist  int
}

// NewLessonCommand creates the lesson command.
func NewLessonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LessonOptions{RootOptions: rootOpts}

	cmd := chapterCommand(rootOpts, "lesson <chapter>", "Record lesson reading progress", 1,
		func(args []string) (engine.Action, error) {
			return engine.UpdateLesson{
				ChapterID:           args[0],
				IsRead:              opts.Read,
				ScrollProgress:      opts.Scroll,
				CompletedParagraphs: opts.Paragraphs,
				CompletedSections:   opts.Sections,
				ChecklistPercentage: opts.Checklist,
			}, nil
		},
		chapterState("Lesson progress recorded for"))

	cmd.Flags().BoolVar(&opts.Read, "read", false, "mark the lesson as read")
	cmd.Flags().IntVar(&opts.Scroll, "scroll", 0, "scroll progress in percent")
	cmd.Flags().IntVar(&opts.Paragraphs, "paragraphs", 0, "completed paragraphs")
	cmd.Flags().IntVar(&opts.Sections, "sections", 0, "completed sections")
	cmd.Flags().IntVar(&opts.Checklist, "checklist", 0, "checklist completion in percent")

	return cmd
}

// chapter returns the definition and stored progress of a chapter.
func (s *session) chapter(ctx context.Context, chapterID string) (*model.ChapterDefinition, *model.ChapterProgress, error) {
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return nil, nil, s.out.Fail("snapshot failed", err)
	}
	var def *model.ChapterDefinition
	if snap.Catalog != nil {
		def = snap.Catalog.Chapters[chapterID]
	}
	p := snap.State.Progress[chapterID]
	if def == nil || p == nil {
		return nil, nil, s.out.Fail("no such chapter", fmt.Errorf("%w %q", engine.ErrUnknownChapter, chapterID))
	}
	return def, p, nil
}
