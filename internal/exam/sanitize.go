package exam

// CandidateQuestion is the wire shape sent to candidates. It has no answer
// field, so nothing built from it can leak a key.
type CandidateQuestion struct {
	ID      QuestionID        `json:"question_id"`
	Text    string            `json:"question"`
	Options map[string]string `json:"options"`
	Image   string            `json:"image,omitempty"`
}

type CandidateSection struct {
	SubjectID     string              `json:"subject_id"`
	SubjectName   string              `json:"subject_name"`
	Questions     []CandidateQuestion `json:"questions"`
	QuestionsOdia []CandidateQuestion `json:"questionsOdia,omitempty"`
}

// StartedSession is the start-session payload.
type StartedSession struct {
	SessionID     string              `json:"sessionId"`
	TestID        string              `json:"testId,omitempty"`
	TestName      string              `json:"testName,omitempty"`
	TimerMinutes  int                 `json:"timerMinutes"`
	CorrectMark   float64             `json:"correctMark"`
	WrongMark     float64             `json:"wrongMark"`
	IsSubjectWise bool                `json:"isSubjectWise"`
	IsBilingual   bool                `json:"isBilingual"`
	Questions     []CandidateQuestion `json:"questions,omitempty"`
	QuestionsOdia []CandidateQuestion `json:"questionsOdia,omitempty"`
	Sections      []CandidateSection  `json:"sections,omitempty"`
}

func sanitizeQuestions(qs []Question) []CandidateQuestion {
	if qs == nil {
		return nil
	}
	out := make([]CandidateQuestion, len(qs))
	for i, q := range qs {
		out[i] = CandidateQuestion{ID: q.ID, Text: q.Text, Options: q.Options, Image: q.Image}
	}
	return out
}

// Sanitize strips answer keys from every question in both languages and both layouts.
func Sanitize(t Test, sessionID string) StartedSession {
	out := StartedSession{
		SessionID:     sessionID,
		TestID:        t.ID,
		TestName:      t.Name,
		TimerMinutes:  t.TimerMinutes,
		CorrectMark:   t.CorrectMark,
		WrongMark:     t.WrongMark,
		IsSubjectWise: t.IsSubjectWise,
		IsBilingual:   t.IsBilingual(),
	}
	if !t.IsSubjectWise {
		out.Questions = sanitizeQuestions(t.Questions)
		out.QuestionsOdia = sanitizeQuestions(t.QuestionsOdia)
		return out
	}
	out.Sections = make([]CandidateSection, len(t.Sections))
	for i, s := range t.Sections {
		out.Sections[i] = CandidateSection{
			SubjectID:     s.SubjectID,
			SubjectName:   s.SubjectName,
			Questions:     sanitizeQuestions(s.Questions),
			QuestionsOdia: sanitizeQuestions(s.QuestionsOdia),
		}
	}
	return out
}
