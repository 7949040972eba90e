package grading

// Status is the outcome of a single question after submission.
type Status string

const (
	StatusCorrect Status = "correct"
	StatusWrong   Status = "wrong"
	StatusSkipped Status = "skipped"
)

// Marking is the per-question marking scheme. Wrong is usually negative.
type Marking struct {
	Correct float64
	Wrong   float64
}

// Item is a minimal view of a question needed for scoring.
// Section is empty for flat tests.
type Item struct {
	QuestionID string
	Section    string
	AnswerKey  string
}

// Responses is what the candidate left behind: selected option per question id,
// and the ids they explicitly skipped.
type Responses struct {
	Answers map[string]string
	Skipped map[string]struct{}
}

// Classify applies the single comparison rule shared by scoring and review.
func Classify(it Item, r Responses) Status {
	if _, skipped := r.Skipped[it.QuestionID]; skipped {
		return StatusSkipped
	}
	ans, ok := r.Answers[it.QuestionID]
	if !ok || ans == "" {
		return StatusSkipped
	}
	if ans == it.AnswerKey {
		return StatusCorrect
	}
	return StatusWrong
}

// Tally accumulates counts and marks over a run of items.
type Tally struct {
	Total      int
	Correct    int
	Wrong      int
	Skipped    int
	Score      float64
	TotalMarks float64
}

func (t *Tally) add(s Status, m Marking) {
	t.Total++
	switch s {
	case StatusCorrect:
		t.Correct++
		t.Score += m.Correct
	case StatusWrong:
		t.Wrong++
		t.Score += m.Wrong
	default:
		t.Skipped++
	}
}

func (t *Tally) close(m Marking) {
	t.TotalMarks = float64(t.Total) * m.Correct
}

// SectionTally is a Tally for one section.
type SectionTally struct {
	Section string
	Tally
}

// Report is the grand tally plus one tally per section, in first-seen order.
// Sections is nil when no item carries a section tag.
type Report struct {
	Tally
	Sections []SectionTally
}

// Score runs one pass over items. The same items always produce the same report.
func Score(items []Item, r Responses, m Marking) Report {
	var rep Report
	idx := map[string]int{}
	for _, it := range items {
		s := Classify(it, r)
		rep.add(s, m)
		if it.Section == "" {
			continue
		}
		i, ok := idx[it.Section]
		if !ok {
			i = len(rep.Sections)
			idx[it.Section] = i
			rep.Sections = append(rep.Sections, SectionTally{Section: it.Section})
		}
		rep.Sections[i].add(s, m)
	}
	rep.close(m)
	for i := range rep.Sections {
		rep.Sections[i].close(m)
	}
	return rep
}
