package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// QuestionID accepts either a JSON string or a JSON number; question banks
// authored by hand tend to use plain integers.
type QuestionID string

func (q *QuestionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("question_id must be a string or number: %w", err)
	}
	*q = QuestionID(n.String())
	return nil
}

func (q *QuestionID) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("question_id must be a scalar (line %d)", n.Line)
	}
	*q = QuestionID(n.Value)
	return nil
}

type Question struct {
	ID            QuestionID        `json:"question_id" yaml:"question_id"`
	Text          string            `json:"question" yaml:"question"`
	Options       map[string]string `json:"options" yaml:"options"`
	CorrectAnswer string            `json:"correct_answer" yaml:"correct_answer"`
	Image         string            `json:"image,omitempty" yaml:"image,omitempty"`
}

type Section struct {
	SubjectID     string     `json:"subject_id" yaml:"subject_id"`
	SubjectName   string     `json:"subject_name" yaml:"subject_name"`
	Questions     []Question `json:"questions" yaml:"questions"`
	QuestionsOdia []Question `json:"questionsOdia,omitempty" yaml:"questionsOdia,omitempty"`
}

// Test is an authoritative test definition, answer keys included.
// Never hand it to a candidate; see Sanitize.
type Test struct {
	ID            string         `json:"testId"`
	Name          string         `json:"testName"`
	TimerMinutes  int            `json:"timerMinutes"`
	CorrectMark   float64        `json:"correctMark"`
	WrongMark     float64        `json:"wrongMark"`
	IsSubjectWise bool           `json:"isSubjectWise"`
	Questions     []Question     `json:"questions,omitempty"`
	QuestionsOdia []Question     `json:"questionsOdia,omitempty"`
	Sections      []Section      `json:"sections,omitempty"`
	Images        map[int]string `json:"images,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	// Alias is set only on the default pointer record: the id of the
	// published version it resolves to.
	Alias string `json:"alias,omitempty"`
}

// QuestionCount is the flat length, or the sum over sections.
func (t Test) QuestionCount() int {
	if !t.IsSubjectWise {
		return len(t.Questions)
	}
	n := 0
	for _, s := range t.Sections {
		n += len(s.Questions)
	}
	return n
}

func (t Test) IsBilingual() bool {
	if !t.IsSubjectWise {
		return len(t.QuestionsOdia) > 0
	}
	for _, s := range t.Sections {
		if len(s.QuestionsOdia) > 0 {
			return true
		}
	}
	return false
}

type Session struct {
	ID        string                `json:"sessionId"`
	TestID    string                `json:"testId,omitempty"` // empty for the default test
	StartTime time.Time             `json:"startTime"`
	EndTime   *time.Time            `json:"endTime"`
	Answers   map[QuestionID]string `json:"answers"`
	Skipped   []QuestionID          `json:"skipped"`
	Result    *Summary              `json:"result"`
}

func (s *Session) Ended() bool { return s.EndTime != nil }

// Record applies one answer or skip. An empty selection means skip.
// Answered and skipped stay disjoint.
func (s *Session) Record(id QuestionID, selected string) error {
	if s.Ended() {
		return ErrSessionEnded
	}
	if s.Answers == nil {
		s.Answers = map[QuestionID]string{}
	}
	if selected != "" {
		s.Answers[id] = selected
		s.Skipped = without(s.Skipped, id)
		return nil
	}
	delete(s.Answers, id)
	for _, x := range s.Skipped {
		if x == id {
			return nil
		}
	}
	s.Skipped = append(s.Skipped, id)
	return nil
}

func without(ids []QuestionID, id QuestionID) []QuestionID {
	out := make([]QuestionID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

type SubjectResult struct {
	SubjectID      string  `json:"subject_id"`
	SubjectName    string  `json:"subject_name"`
	TotalQuestions int     `json:"totalQuestions"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	Skipped        int     `json:"skipped"`
	Score          float64 `json:"score"`
	TotalMarks     float64 `json:"totalMarks"`
}

// Summary is the scored result cached on a session at end time.
type Summary struct {
	TotalQuestions int             `json:"totalQuestions"`
	CorrectCount   int             `json:"correctCount"`
	WrongCount     int             `json:"wrongCount"`
	SkippedCount   int             `json:"skippedCount"`
	Score          float64         `json:"score"`
	TotalMarks     float64         `json:"totalMarks"`
	SubjectResults []SubjectResult `json:"subjectResults,omitempty"`
}

type Settings struct {
	TimerMinutes int     `json:"timerMinutes"`
	CorrectMark  float64 `json:"correctMark"`
	WrongMark    float64 `json:"wrongMark"`
}

// Template is a durable copy of a test's content, decoupled from sessions.
type Template struct {
	ID            string         `json:"id"`
	TestID        string         `json:"testId"`
	TestName      string         `json:"testName"`
	SavedAt       time.Time      `json:"savedDate"`
	Settings      Settings       `json:"settings"`
	IsSubjectWise bool           `json:"isSubjectWise"`
	Questions     []Question     `json:"questions,omitempty"`
	QuestionsOdia []Question     `json:"questionsOdia,omitempty"`
	Sections      []Section      `json:"sections,omitempty"`
	Images        map[int]string `json:"images,omitempty"`
}

type TemplateSummary struct {
	ID            string    `json:"id"`
	TestName      string    `json:"testName"`
	SavedAt       time.Time `json:"savedDate"`
	QuestionCount int       `json:"questionCount"`
	IsBilingual   bool      `json:"isBilingual"`
	IsSubjectWise bool      `json:"isSubjectWise"`
}
