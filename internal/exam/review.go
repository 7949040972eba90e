package exam

import "github.com/mind-engage/mindengage-testpad/internal/grading"

// tagged is a question plus the index of its owning section (-1 for flat tests).
type tagged struct {
	Question
	section int
}

// flatten yields the authoritative question list in delivery order; sections are
// concatenated in section order.
func flatten(t Test) []tagged {
	if !t.IsSubjectWise {
		out := make([]tagged, len(t.Questions))
		for i, q := range t.Questions {
			out[i] = tagged{Question: q, section: -1}
		}
		return out
	}
	var out []tagged
	for si, s := range t.Sections {
		for _, q := range s.Questions {
			out = append(out, tagged{Question: q, section: si})
		}
	}
	return out
}

func gradingItems(t Test, qs []tagged) []grading.Item {
	out := make([]grading.Item, len(qs))
	for i, q := range qs {
		it := grading.Item{QuestionID: string(q.ID), AnswerKey: q.CorrectAnswer}
		if q.section >= 0 {
			it.Section = t.Sections[q.section].SubjectID
		}
		out[i] = it
	}
	return out
}

func gradingResponses(s Session) grading.Responses {
	r := grading.Responses{
		Answers: make(map[string]string, len(s.Answers)),
		Skipped: make(map[string]struct{}, len(s.Skipped)),
	}
	for id, opt := range s.Answers {
		r.Answers[string(id)] = opt
	}
	for _, id := range s.Skipped {
		r.Skipped[string(id)] = struct{}{}
	}
	return r
}

func marking(t Test) grading.Marking {
	return grading.Marking{Correct: t.CorrectMark, Wrong: t.WrongMark}
}

// score is the one scoring pass used for flat and sectioned tests alike.
func score(t Test, s Session) Summary {
	rep := grading.Score(gradingItems(t, flatten(t)), gradingResponses(s), marking(t))
	sum := Summary{
		TotalQuestions: rep.Total,
		CorrectCount:   rep.Correct,
		WrongCount:     rep.Wrong,
		SkippedCount:   rep.Skipped,
		Score:          rep.Score,
		TotalMarks:     rep.TotalMarks,
	}
	if !t.IsSubjectWise {
		return sum
	}
	bySection := make(map[string]grading.Tally, len(rep.Sections))
	for _, st := range rep.Sections {
		bySection[st.Section] = st.Tally
	}
	for _, sec := range t.Sections {
		tl := bySection[sec.SubjectID]
		sum.SubjectResults = append(sum.SubjectResults, SubjectResult{
			SubjectID:      sec.SubjectID,
			SubjectName:    sec.SubjectName,
			TotalQuestions: tl.Total,
			Correct:        tl.Correct,
			Wrong:          tl.Wrong,
			Skipped:        tl.Skipped,
			Score:          tl.Score,
			TotalMarks:     tl.TotalMarks,
		})
	}
	return sum
}

type ReviewRow struct {
	QuestionID    QuestionID        `json:"questionId"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	UserAnswer    *string           `json:"userAnswer"`
	Status        grading.Status    `json:"status"`
	Image         string            `json:"image,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
}

type SubjectReview struct {
	SubjectID   string      `json:"subject_id"`
	SubjectName string      `json:"subject_name"`
	Questions   []ReviewRow `json:"questions"`
}

type ResultView struct {
	Summary                 *Summary        `json:"summary"`
	DetailedReview          []ReviewRow     `json:"detailedReview"`
	DetailedReviewBySubject []SubjectReview `json:"detailedReviewBySubject,omitempty"`
}

// review rebuilds per-question rows with the same classification score uses.
func review(t Test, s Session) ResultView {
	qs := flatten(t)
	items := gradingItems(t, qs)
	resp := gradingResponses(s)

	view := ResultView{Summary: s.Result, DetailedReview: make([]ReviewRow, len(qs))}
	if t.IsSubjectWise {
		view.DetailedReviewBySubject = make([]SubjectReview, len(t.Sections))
		for i, sec := range t.Sections {
			view.DetailedReviewBySubject[i] = SubjectReview{
				SubjectID:   sec.SubjectID,
				SubjectName: sec.SubjectName,
				Questions:   []ReviewRow{},
			}
		}
	}
	for i, q := range qs {
		row := ReviewRow{
			QuestionID:    q.ID,
			Question:      q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Status:        grading.Classify(items[i], resp),
			Image:         q.Image,
			SubjectID:     items[i].Section,
		}
		if ans, ok := s.Answers[q.ID]; ok && ans != "" {
			row.UserAnswer = &ans
		}
		view.DetailedReview[i] = row
		if q.section >= 0 {
			g := &view.DetailedReviewBySubject[q.section]
			g.Questions = append(g.Questions, row)
		}
	}
	return view
}
