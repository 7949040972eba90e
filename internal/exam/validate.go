package exam

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultTimerMinutes = 30
	DefaultCorrectMark  = 1.0
	DefaultWrongMark    = -0.25
)

// CreateTestInput is what an admin submits. Marks are pointers so an explicit 0
// can be told apart from an omitted field.
type CreateTestInput struct {
	TestName      string         `json:"testName" yaml:"testName"`
	TimerMinutes  int            `json:"timerMinutes" yaml:"timerMinutes"`
	CorrectMark   *float64       `json:"correctMark" yaml:"correctMark"`
	WrongMark     *float64       `json:"wrongMark" yaml:"wrongMark"`
	IsSubjectWise bool           `json:"isSubjectWise" yaml:"isSubjectWise"`
	Questions     []Question     `json:"questions" yaml:"questions"`
	QuestionsOdia []Question     `json:"questionsOdia" yaml:"questionsOdia"`
	Sections      []Section      `json:"sections" yaml:"sections"`
	Images        map[int]string `json:"images" yaml:"images"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// buildTest validates in and returns the definition to store. in is not modified.
func buildTest(in CreateTestInput, id string, now time.Time) (Test, error) {
	name := strings.TrimSpace(in.TestName)
	if name == "" {
		return Test{}, invalid("test name is required")
	}
	t := Test{
		ID:            id,
		Name:          name,
		TimerMinutes:  in.TimerMinutes,
		CorrectMark:   DefaultCorrectMark,
		WrongMark:     DefaultWrongMark,
		IsSubjectWise: in.IsSubjectWise,
		CreatedAt:     now,
	}
	if t.TimerMinutes <= 0 {
		t.TimerMinutes = DefaultTimerMinutes
	}
	if in.CorrectMark != nil {
		t.CorrectMark = *in.CorrectMark
	}
	if in.WrongMark != nil {
		t.WrongMark = *in.WrongMark
	}

	seen := map[QuestionID]bool{}
	if in.IsSubjectWise {
		if len(in.Sections) == 0 {
			return Test{}, invalid("subject-wise test requires at least one section")
		}
		if len(in.Questions) > 0 || len(in.QuestionsOdia) > 0 {
			return Test{}, invalid("subject-wise test must not carry flat questions")
		}
		if len(in.Images) > 0 {
			return Test{}, invalid("images by position apply to flat tests only")
		}
		subjects := map[string]bool{}
		for i, s := range in.Sections {
			s.SubjectName = strings.TrimSpace(s.SubjectName)
			if s.SubjectID == "" {
				s.SubjectID = subjectSlug(s.SubjectName, i)
			}
			label := s.SubjectName
			if label == "" {
				label = s.SubjectID
			}
			if subjects[s.SubjectID] {
				return Test{}, invalid("duplicate subject_id %q", s.SubjectID)
			}
			subjects[s.SubjectID] = true
			if len(s.Questions) == 0 {
				return Test{}, invalid("section %q has no questions", label)
			}
			if err := checkQuestions(s.Questions, s.QuestionsOdia, seen); err != nil {
				return Test{}, fmt.Errorf("%w (section %q)", err, label)
			}
			s.Questions = cloneQuestions(s.Questions)
			s.QuestionsOdia = cloneQuestions(s.QuestionsOdia)
			t.Sections = append(t.Sections, s)
		}
		return t, nil
	}

	if len(in.Questions) == 0 {
		return Test{}, invalid("questions are required")
	}
	if len(in.Sections) > 0 {
		return Test{}, invalid("flat test must not carry sections")
	}
	if err := checkQuestions(in.Questions, in.QuestionsOdia, seen); err != nil {
		return Test{}, err
	}
	t.Questions = cloneQuestions(in.Questions)
	t.QuestionsOdia = cloneQuestions(in.QuestionsOdia)
	if len(in.Images) > 0 {
		t.Images = make(map[int]string, len(in.Images))
		for pos, ref := range in.Images {
			if pos < 0 || pos >= len(t.Questions) {
				return Test{}, invalid("image index %d out of range", pos)
			}
			t.Images[pos] = ref
			t.Questions[pos].Image = ref
			if len(t.QuestionsOdia) > 0 {
				t.QuestionsOdia[pos].Image = ref
			}
		}
	}
	return t, nil
}

// checkQuestions enforces non-empty unique ids and, when a translation is
// present, the same id sequence with agreeing answer keys.
func checkQuestions(qs, odia []Question, seen map[QuestionID]bool) error {
	for i, q := range qs {
		if q.ID == "" {
			return invalid("question %d has no question_id", i+1)
		}
		if seen[q.ID] {
			return invalid("duplicate question_id %q", q.ID)
		}
		seen[q.ID] = true
	}
	if len(odia) == 0 {
		return nil
	}
	if len(odia) != len(qs) {
		return invalid("questionsOdia has %d questions, questions has %d", len(odia), len(qs))
	}
	for i := range qs {
		if odia[i].ID != qs[i].ID {
			return invalid("questionsOdia[%d] has question_id %q, want %q", i, odia[i].ID, qs[i].ID)
		}
		if odia[i].CorrectAnswer != "" && odia[i].CorrectAnswer != qs[i].CorrectAnswer {
			return invalid("question %q: translated correct_answer disagrees", qs[i].ID)
		}
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func subjectSlug(name string, i int) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return fmt.Sprintf("subject%d", i+1)
	}
	return slug
}

func cloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
