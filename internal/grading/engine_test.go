package grading

import "testing"

func responses(answers map[string]string, skipped ...string) Responses {
	r := Responses{Answers: answers, Skipped: map[string]struct{}{}}
	for _, id := range skipped {
		r.Skipped[id] = struct{}{}
	}
	return r
}

func TestClassify(t *testing.T) {
	it := Item{QuestionID: "q1", AnswerKey: "c"}
	tests := []struct {
		name string
		r    Responses
		want Status
	}{
		{name: "correct", r: responses(map[string]string{"q1": "c"}), want: StatusCorrect},
		{name: "wrong", r: responses(map[string]string{"q1": "a"}), want: StatusWrong},
		{name: "never visited", r: responses(map[string]string{}), want: StatusSkipped},
		{name: "explicit skip", r: responses(map[string]string{}, "q1"), want: StatusSkipped},
		{name: "empty selection", r: responses(map[string]string{"q1": ""}), want: StatusSkipped},
		{name: "nil maps", r: Responses{}, want: StatusSkipped},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(it, tc.r); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScore_Flat(t *testing.T) {
	items := []Item{
		{QuestionID: "1", AnswerKey: "c"},
		{QuestionID: "2", AnswerKey: "b"},
		{QuestionID: "3", AnswerKey: "b"},
	}
	r := responses(map[string]string{"1": "c", "2": "a"}, "3")
	rep := Score(items, r, Marking{Correct: 1, Wrong: -0.25})

	if rep.Total != 3 || rep.Correct != 1 || rep.Wrong != 1 || rep.Skipped != 1 {
		t.Fatalf("counts = %+v", rep.Tally)
	}
	if rep.Score != 0.75 {
		t.Fatalf("score = %v, want 0.75", rep.Score)
	}
	if rep.TotalMarks != 3 {
		t.Fatalf("totalMarks = %v, want 3", rep.TotalMarks)
	}
	if rep.Sections != nil {
		t.Fatalf("flat test should have no sections, got %+v", rep.Sections)
	}
}

func TestScore_Sectioned(t *testing.T) {
	items := []Item{
		{QuestionID: "p1", Section: "physics", AnswerKey: "a"},
		{QuestionID: "p2", Section: "physics", AnswerKey: "b"},
		{QuestionID: "c1", Section: "chemistry", AnswerKey: "d"},
	}
	r := responses(map[string]string{"p1": "a", "p2": "b"}, "c1")
	rep := Score(items, r, Marking{Correct: 1, Wrong: -0.25})

	if rep.Correct != 2 || rep.Skipped != 1 || rep.Wrong != 0 {
		t.Fatalf("grand counts = %+v", rep.Tally)
	}
	if len(rep.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(rep.Sections))
	}
	a, b := rep.Sections[0], rep.Sections[1]
	if a.Section != "physics" || a.Correct != 2 || a.TotalMarks != 2 || a.Score != 2 {
		t.Errorf("physics = %+v", a)
	}
	if b.Section != "chemistry" || b.Skipped != 1 || b.TotalMarks != 1 || b.Score != 0 {
		t.Errorf("chemistry = %+v", b)
	}
}

func TestScore_Invariants(t *testing.T) {
	items := []Item{
		{QuestionID: "1", AnswerKey: "a"},
		{QuestionID: "2", AnswerKey: "a"},
		{QuestionID: "3", AnswerKey: "a"},
		{QuestionID: "4", AnswerKey: "a"},
		{QuestionID: "5", AnswerKey: "a"},
	}
	m := Marking{Correct: 4, Wrong: -1}
	r := responses(map[string]string{"1": "a", "2": "b", "3": "c", "5": "a"})
	rep := Score(items, r, m)

	if rep.Correct+rep.Wrong+rep.Skipped != rep.Total {
		t.Fatalf("counts do not add up: %+v", rep.Tally)
	}
	want := float64(rep.Correct)*m.Correct + float64(rep.Wrong)*m.Wrong
	if rep.Score != want {
		t.Fatalf("score = %v, want %v", rep.Score, want)
	}
	if rep.TotalMarks != float64(len(items))*m.Correct {
		t.Fatalf("totalMarks = %v", rep.TotalMarks)
	}
}

func TestScore_ZeroMarks(t *testing.T) {
	items := []Item{{QuestionID: "1", AnswerKey: "a"}, {QuestionID: "2", AnswerKey: "a"}}
	rep := Score(items, responses(map[string]string{"1": "a", "2": "b"}), Marking{})
	if rep.Score != 0 || rep.TotalMarks != 0 {
		t.Fatalf("zero marking should yield zero score, got %+v", rep.Tally)
	}
}
