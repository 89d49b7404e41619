package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/pedago/internal/model"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidationError reports an invalid chapter definition.
type ValidationError struct {
	ChapterID string
	Problems  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid chapter %q: %s", e.ChapterID, strings.Join(e.Problems, "; "))
}

// Validate checks a definition: struct tags first, then id uniqueness and
// question shape. Answer keys must be reachable: a choice question's
// correct answer is one of its options when it lists any, an ordering
// question's correct order is a permutation of its steps.
func Validate(def *model.ChapterDefinition) error {
	var problems []string

	if err := validatorInstance().Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate chapter %q: %w", def.ID, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	problems = append(problems, duplicates("question", questionIDs(def))...)
	problems = append(problems, duplicates("exercise", exerciseIDs(def))...)
	problems = append(problems, duplicates("video", videoIDs(def))...)

	for _, q := range def.Quiz {
		problems = append(problems, answerKeyProblems(q)...)
	}

	if len(problems) > 0 {
		return &ValidationError{ChapterID: def.ID, Problems: problems}
	}
	return nil
}

func answerKeyProblems(q model.Question) []string {
	if q.IsOrdering() {
		if len(q.Steps) == 0 {
			return []string{fmt.Sprintf("ordering question %q has no steps", q.ID)}
		}
		if len(q.CorrectOrder) > 0 && !isPermutation(q.CorrectOrder, q.Steps) {
			return []string{fmt.Sprintf("ordering question %q: correct order is not a permutation of its steps", q.ID)}
		}
		return nil
	}
	if q.CorrectAnswer == "" || len(q.Options) == 0 {
		return nil
	}
	want := strings.TrimSpace(q.CorrectAnswer)
	for _, o := range q.Options {
		if strings.TrimSpace(o) == want {
			return nil
		}
	}
	return []string{fmt.Sprintf("question %q: correct answer %q is not an option", q.ID, q.CorrectAnswer)}
}

func isPermutation(order, steps []string) bool {
	if len(order) != len(steps) {
		return false
	}
	left := make(map[string]int, len(steps))
	for _, s := range steps {
		left[s]++
	}
	for _, s := range order {
		if left[s] == 0 {
			return false
		}
		left[s]--
	}
	return true
}

func duplicates(kind string, ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			out = append(out, fmt.Sprintf("duplicate %s id %q", kind, id))
		}
		seen[id] = true
	}
	return out
}

func questionIDs(def *model.ChapterDefinition) []string {
	ids := make([]string, len(def.Quiz))
	for i, q := range def.Quiz {
		ids[i] = q.ID
	}
	return ids
}

func exerciseIDs(def *model.ChapterDefinition) []string {
	ids := make([]string, len(def.Exercises))
	for i, ex := range def.Exercises {
		ids[i] = ex.ID
	}
	return ids
}

func videoIDs(def *model.ChapterDefinition) []string {
	ids := make([]string, len(def.Videos))
	for i, v := range def.Videos {
		ids[i] = v.ID
	}
	return ids
}
