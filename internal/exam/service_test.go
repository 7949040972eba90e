package exam

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	syncx "github.com/mind-engage/mindengage-testpad/internal/sync"
)

type fakeSink struct {
	mu     sync.Mutex
	events []syncx.Event
}

func (f *fakeSink) Append(_ context.Context, e syncx.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeSink) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type secret string

func (s secret) Verify(code string) bool { return code != "" && code == string(s) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T, st Store) (*Service, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	c := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(st, st, st, WithEvents(sink), WithTemplateSecret(secret("letmein")), WithClock(c.now)), sink
}

func flatInput() CreateTestInput {
	return CreateTestInput{
		TestName:      "General Knowledge",
		CorrectMark:   f(1),
		WrongMark:     f(-0.25),
		Questions:     []Question{q("1", "c"), q("2", "b"), q("3", "b")},
		QuestionsOdia: []Question{q("1", "c"), q("2", "b"), q("3", "")},
	}
}

func sectionedInput() CreateTestInput {
	return CreateTestInput{
		TestName:      "Science",
		IsSubjectWise: true,
		Sections: []Section{
			{SubjectID: "a", SubjectName: "Physics", Questions: []Question{q("p1", "a"), q("p2", "b")}},
			{SubjectID: "b", SubjectName: "Chemistry", Questions: []Question{q("c1", "d")},
				QuestionsOdia: []Question{q("c1", "d")}},
		},
	}
}

// containsKey walks decoded JSON looking for any of the given object keys.
func containsKey(v any, keys ...string) bool {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			for _, want := range keys {
				if k == want {
					return true
				}
			}
			if containsKey(child, keys...) {
				return true
			}
		}
	case []any:
		for _, child := range x {
			if containsKey(child, keys...) {
				return true
			}
		}
	}
	return false
}

func assertNoAnswers(t *testing.T, payload any) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if containsKey(decoded, "correct_answer", "correctAnswer") {
		t.Fatalf("candidate payload leaks answers: %s", b)
	}
}

func TestService_FlatScenario(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, NewInMemoryStore())

	created, err := svc.CreateTest(ctx, flatInput())
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if len(created.TestID) != 8 || created.QuestionCount != 3 || created.TestName != "General Knowledge" {
		t.Fatalf("created = %+v", created)
	}

	started, err := svc.StartSession(ctx, created.TestID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	assertNoAnswers(t, started)
	if len(started.Questions) != 3 || len(started.QuestionsOdia) != 3 || !started.IsBilingual {
		t.Fatalf("started = %+v", started)
	}

	sid := started.SessionID
	for _, step := range []struct {
		id  QuestionID
		sel string
	}{{"1", "c"}, {"2", "a"}, {"3", "d"}, {"3", ""}} {
		if err := svc.RecordAnswer(ctx, sid, step.id, step.sel); err != nil {
			t.Fatalf("RecordAnswer(%s): %v", step.id, err)
		}
	}

	if _, err := svc.Result(ctx, sid); !errors.Is(err, ErrNotSubmitted) {
		t.Fatalf("Result before end: err = %v, want ErrNotSubmitted", err)
	}

	sum, err := svc.EndSession(ctx, sid)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	want := Summary{TotalQuestions: 3, CorrectCount: 1, WrongCount: 1, SkippedCount: 1, Score: 0.75, TotalMarks: 3}
	if sum.TotalQuestions != want.TotalQuestions || sum.CorrectCount != want.CorrectCount ||
		sum.WrongCount != want.WrongCount || sum.SkippedCount != want.SkippedCount ||
		sum.Score != want.Score || sum.TotalMarks != want.TotalMarks || sum.SubjectResults != nil {
		t.Fatalf("summary = %+v, want %+v", sum, want)
	}

	if err := svc.RecordAnswer(ctx, sid, "3", "b"); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("RecordAnswer after end: err = %v, want ErrSessionEnded", err)
	}

	again, err := svc.EndSession(ctx, sid)
	if err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	if again.Score != sum.Score || again.CorrectCount != sum.CorrectCount {
		t.Fatalf("second end changed result: %+v", again)
	}

	view, err := svc.Result(ctx, sid)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	wantStatus := []string{"correct", "wrong", "skipped"}
	for i, row := range view.DetailedReview {
		if string(row.Status) != wantStatus[i] {
			t.Errorf("row %d status = %s, want %s", i, row.Status, wantStatus[i])
		}
	}
	if view.DetailedReview[2].UserAnswer != nil {
		t.Errorf("skipped row carries a user answer: %v", *view.DetailedReview[2].UserAnswer)
	}
	if ua := view.DetailedReview[1].UserAnswer; ua == nil || *ua != "a" {
		t.Errorf("wrong row user answer = %v", ua)
	}
	if view.DetailedReviewBySubject != nil {
		t.Error("flat test should not group review by subject")
	}

	got := sink.types()
	wantEvents := []string{EventTestCreated, EventSessionStarted, EventSessionEnded}
	if len(got) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}
	for i := range got {
		if got[i] != wantEvents[i] {
			t.Fatalf("events = %v, want %v", got, wantEvents)
		}
	}
}

func TestService_SectionedScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())

	created, err := svc.CreateTest(ctx, sectionedInput())
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if created.QuestionCount != 3 {
		t.Fatalf("questionCount = %d, want 3", created.QuestionCount)
	}

	info, err := svc.TestInfo(ctx, created.TestID)
	if err != nil {
		t.Fatalf("TestInfo: %v", err)
	}
	if !info.IsSubjectWise || !info.IsBilingual || len(info.Sections) != 2 || info.Sections[0].QuestionCount != 2 {
		t.Fatalf("info = %+v", info)
	}

	started, err := svc.StartSession(ctx, created.TestID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	assertNoAnswers(t, started)
	if len(started.Sections) != 2 || started.Questions != nil {
		t.Fatalf("started = %+v", started)
	}

	sid := started.SessionID
	_ = svc.RecordAnswer(ctx, sid, "p1", "a")
	_ = svc.RecordAnswer(ctx, sid, "p2", "b")
	_ = svc.RecordAnswer(ctx, sid, "c1", "")

	sum, err := svc.EndSession(ctx, sid)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if sum.CorrectCount != 2 || sum.SkippedCount != 1 || sum.WrongCount != 0 || sum.TotalMarks != 3 {
		t.Fatalf("grand = %+v", sum)
	}
	if len(sum.SubjectResults) != 2 {
		t.Fatalf("subjectResults = %+v", sum.SubjectResults)
	}
	a, b := sum.SubjectResults[0], sum.SubjectResults[1]
	if a.SubjectID != "a" || a.Correct != 2 || a.TotalMarks != 2 {
		t.Errorf("section A = %+v", a)
	}
	if b.SubjectID != "b" || b.Skipped != 1 || b.TotalMarks != 1 {
		t.Errorf("section B = %+v", b)
	}

	view, err := svc.Result(ctx, sid)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(view.DetailedReview) != 3 || len(view.DetailedReviewBySubject) != 2 {
		t.Fatalf("view = %+v", view)
	}
	if len(view.DetailedReviewBySubject[0].Questions) != 2 || len(view.DetailedReviewBySubject[1].Questions) != 1 {
		t.Fatalf("grouping = %+v", view.DetailedReviewBySubject)
	}
	if view.DetailedReviewBySubject[1].Questions[0].Status != "skipped" {
		t.Errorf("c1 status = %s", view.DetailedReviewBySubject[1].Questions[0].Status)
	}
}

func TestService_ReviewMatchesSummary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())
	created, _ := svc.CreateTest(ctx, flatInput())
	started, _ := svc.StartSession(ctx, created.TestID)
	_ = svc.RecordAnswer(ctx, started.SessionID, "2", "b")
	_ = svc.RecordAnswer(ctx, started.SessionID, "3", "a")
	sum, _ := svc.EndSession(ctx, started.SessionID)
	view, err := svc.Result(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	counts := map[string]int{}
	for _, row := range view.DetailedReview {
		counts[string(row.Status)]++
	}
	if counts["correct"] != sum.CorrectCount || counts["wrong"] != sum.WrongCount || counts["skipped"] != sum.SkippedCount {
		t.Fatalf("review %v disagrees with summary %+v", counts, sum)
	}
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())

	if _, err := svc.TestInfo(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TestInfo: %v", err)
	}
	if _, err := svc.StartSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("StartSession: %v", err)
	}
	if err := svc.RecordAnswer(ctx, "nope", "1", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordAnswer: %v", err)
	}
	if _, err := svc.EndSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("EndSession: %v", err)
	}
	if _, err := svc.Result(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Result: %v", err)
	}
	if _, err := svc.LoadTemplate(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTemplate: %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, "nope", "letmein"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveTemplate: %v", err)
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, NewInMemoryStore())
	if _, err := svc.CreateTest(ctx, CreateTestInput{TestName: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(sink.types()) != 0 {
		t.Fatal("rejected test emitted an event")
	}
}

func TestService_Templates(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	svc, _ := newTestService(t, st)

	first, _ := svc.CreateTest(ctx, flatInput())
	second, _ := svc.CreateTest(ctx, sectionedInput())

	if _, err := svc.SaveTemplate(ctx, first.TestID, "wrong"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("wrong code: err = %v, want ErrForbidden", err)
	}
	list, err := svc.ListTemplates(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("forbidden save created a record: %v %v", list, err)
	}

	id1, err := svc.SaveTemplate(ctx, first.TestID, "letmein")
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	id2, err := svc.SaveTemplate(ctx, second.TestID, "letmein")
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	list, err = svc.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 2 || list[0].ID != id2 || list[1].ID != id1 {
		t.Fatalf("list order = %+v", list)
	}
	if list[0].QuestionCount != 3 || !list[0].IsSubjectWise || !list[0].IsBilingual {
		t.Errorf("sectioned summary = %+v", list[0])
	}
	if list[1].QuestionCount != 3 || list[1].IsSubjectWise || !list[1].IsBilingual {
		t.Errorf("flat summary = %+v", list[1])
	}

	tpl, err := svc.LoadTemplate(ctx, id1)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if tpl.TestID != first.TestID || len(tpl.Questions) != 3 || tpl.Questions[0].CorrectAnswer != "c" ||
		tpl.Settings.WrongMark != -0.25 {
		t.Fatalf("template = %+v", tpl)
	}

	// the live test is untouched
	if _, err := svc.StartSession(ctx, first.TestID); err != nil {
		t.Fatalf("live test gone after save: %v", err)
	}
}

func TestService_TemplatesWithoutSecret(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	svc := NewService(st, st, st)
	created, _ := svc.CreateTest(ctx, flatInput())
	if _, err := svc.SaveTemplate(ctx, created.TestID, "anything"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestService_DefaultTest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())

	info, err := svc.DefaultInfo(ctx)
	if err != nil {
		t.Fatalf("DefaultInfo: %v", err)
	}
	if info.QuestionCount != 0 || info.TimerMinutes != 30 || info.CorrectMark != 1 || info.WrongMark != -0.25 {
		t.Fatalf("builtin default = %+v", info)
	}

	n, err := svc.UploadDefaultQuestions(ctx, []Question{q("1", "a"), q("2", "b")})
	if err != nil || n != 2 {
		t.Fatalf("UploadDefaultQuestions = %d, %v", n, err)
	}
	cfg, err := svc.SetDefaultConfig(ctx, ConfigInput{TimerMinutes: 10, CorrectMark: f(4), WrongMark: f(-1)})
	if err != nil {
		t.Fatalf("SetDefaultConfig: %v", err)
	}
	if cfg.TimerMinutes != 10 || cfg.CorrectMark != 4 || cfg.WrongMark != -1 {
		t.Fatalf("config = %+v", cfg)
	}
	// zero timer and omitted marks keep current values
	cfg, _ = svc.SetDefaultConfig(ctx, ConfigInput{})
	if cfg.TimerMinutes != 10 || cfg.CorrectMark != 4 {
		t.Fatalf("config after empty update = %+v", cfg)
	}

	started, err := svc.StartSession(ctx, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if started.TestID != "" || len(started.Questions) != 2 || started.TimerMinutes != 10 {
		t.Fatalf("legacy start = %+v", started)
	}
	assertNoAnswers(t, started)

	_ = svc.RecordAnswer(ctx, started.SessionID, "1", "a")
	_ = svc.RecordAnswer(ctx, started.SessionID, "2", "c")
	sum, err := svc.EndSession(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if sum.Score != 3 || sum.TotalMarks != 8 {
		t.Fatalf("legacy summary = %+v", sum)
	}
}

func TestService_SeedDefault(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())
	in := flatInput()
	in.TimerMinutes = 15
	if _, err := svc.SeedDefault(ctx, in); err != nil {
		t.Fatalf("SeedDefault: %v", err)
	}
	info, _ := svc.DefaultInfo(ctx)
	if info.TestID != DefaultTestID || info.QuestionCount != 3 || info.TimerMinutes != 15 {
		t.Fatalf("seeded default = %+v", info)
	}
}

// Changes to the default after a session starts must not reach that session.
func exerciseDefaultChangesMidSession(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	svc, _ := newTestService(t, st)

	if _, err := svc.UploadDefaultQuestions(ctx, []Question{q("1", "a")}); err != nil {
		t.Fatalf("UploadDefaultQuestions: %v", err)
	}

	// upload after end, before result
	first, err := svc.StartSession(ctx, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	_ = svc.RecordAnswer(ctx, first.SessionID, "1", "a")
	sum, err := svc.EndSession(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if sum.TotalQuestions != 1 || sum.CorrectCount != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if _, err := svc.UploadDefaultQuestions(ctx, []Question{q("1", "b"), q("2", "c")}); err != nil {
		t.Fatalf("UploadDefaultQuestions: %v", err)
	}
	view, err := svc.Result(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(view.DetailedReview) != 1 || view.DetailedReview[0].Status != "correct" || view.DetailedReview[0].CorrectAnswer != "a" {
		t.Fatalf("review after re-upload = %+v", view.DetailedReview)
	}

	// config change and upload between start and end
	second, err := svc.StartSession(ctx, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if len(second.Questions) != 2 {
		t.Fatalf("second start sees %d questions", len(second.Questions))
	}
	_ = svc.RecordAnswer(ctx, second.SessionID, "1", "b")
	_ = svc.RecordAnswer(ctx, second.SessionID, "2", "a")
	if _, err := svc.SetDefaultConfig(ctx, ConfigInput{CorrectMark: f(10), WrongMark: f(-5)}); err != nil {
		t.Fatalf("SetDefaultConfig: %v", err)
	}
	if _, err := svc.UploadDefaultQuestions(ctx, []Question{q("1", "d"), q("2", "d"), q("3", "d")}); err != nil {
		t.Fatalf("UploadDefaultQuestions: %v", err)
	}
	sum, err = svc.EndSession(ctx, second.SessionID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if sum.TotalQuestions != 2 || sum.CorrectCount != 1 || sum.WrongCount != 1 || sum.Score != 0.75 || sum.TotalMarks != 2 {
		t.Fatalf("summary after mid-session change = %+v", sum)
	}

	info, err := svc.DefaultInfo(ctx)
	if err != nil {
		t.Fatalf("DefaultInfo: %v", err)
	}
	if info.TestID != DefaultTestID || info.QuestionCount != 3 || info.CorrectMark != 10 {
		t.Fatalf("current default = %+v", info)
	}
}

func TestService_DefaultChangesMidSession(t *testing.T) {
	exerciseDefaultChangesMidSession(t, NewInMemoryStore())
}

func TestService_DefaultStartPublishesBuiltin(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	svc, _ := newTestService(t, st)
	started, err := svc.StartSession(ctx, DefaultTestID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if started.TestID != "" || started.TestName != "" || len(started.Questions) != 0 {
		t.Fatalf("builtin start = %+v", started)
	}
	sess, _ := st.GetSession(ctx, started.SessionID)
	ptr, err := st.GetTest(ctx, DefaultTestID)
	if err != nil {
		t.Fatalf("default pointer: %v", err)
	}
	if sess.TestID == "" || sess.TestID == DefaultTestID || sess.TestID != ptr.Alias {
		t.Fatalf("session bound to %q, pointer alias %q", sess.TestID, ptr.Alias)
	}
	sum, err := svc.EndSession(ctx, started.SessionID)
	if err != nil || sum.TotalQuestions != 0 || sum.Score != 0 {
		t.Fatalf("EndSession = %+v, %v", sum, err)
	}
}

func TestService_SaveDefaultTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())
	if _, err := svc.UploadDefaultQuestions(ctx, []Question{q("1", "a"), q("2", "b")}); err != nil {
		t.Fatalf("UploadDefaultQuestions: %v", err)
	}
	id, err := svc.SaveTemplate(ctx, DefaultTestID, "letmein")
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	tpl, err := svc.LoadTemplate(ctx, id)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if len(tpl.Questions) != 2 || tpl.TestID == DefaultTestID {
		t.Fatalf("template of default = %+v", tpl)
	}
}

type collidingStore struct {
	Store
	puts int
}

// the first two inserts hit an existing id
func (c *collidingStore) PutTest(ctx context.Context, t Test) error {
	c.puts++
	if c.puts <= 2 {
		return ErrConflict
	}
	return c.Store.PutTest(ctx, t)
}

func TestService_CreateRetriesTakenID(t *testing.T) {
	ctx := context.Background()
	st := &collidingStore{Store: NewInMemoryStore()}
	svc := NewService(st, st, st)
	created, err := svc.CreateTest(ctx, flatInput())
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if st.puts != 3 {
		t.Fatalf("puts = %d, want 3", st.puts)
	}
	if _, err := st.GetTest(ctx, created.TestID); err != nil {
		t.Fatalf("GetTest(%s): %v", created.TestID, err)
	}
}

func TestService_RecordRequiresQuestionID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())
	created, _ := svc.CreateTest(ctx, flatInput())
	started, _ := svc.StartSession(ctx, created.TestID)
	if err := svc.RecordAnswer(ctx, started.SessionID, "", "a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestService_ConcurrentAnswers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewInMemoryStore())
	created, _ := svc.CreateTest(ctx, flatInput())
	started, _ := svc.StartSession(ctx, created.TestID)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sel := "a"
			if i%2 == 0 {
				sel = ""
			}
			_ = svc.RecordAnswer(ctx, started.SessionID, QuestionID([]string{"1", "2", "3"}[i%3]), sel)
		}(i)
	}
	wg.Wait()

	st := svc.sessions
	sess, err := st.GetSession(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !disjoint(sess) {
		t.Fatalf("answered and skipped overlap: %+v", sess)
	}
}
