package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	syncx "github.com/mind-engage/mindengage-testpad/internal/sync"
)

const (
	EventTestCreated    = "TestCreated"
	EventSessionStarted = "SessionStarted"
	EventSessionEnded   = "SessionEnded"
	EventTemplateSaved  = "TemplateSaved"
)

// SecretVerifier checks the shared admin code used to save templates.
type SecretVerifier interface {
	Verify(code string) bool
}

// Service is the session lifecycle controller: create test, start, record,
// end, result, and the template library on top of the injected stores.
type Service struct {
	tests     TestStore
	sessions  SessionStore
	templates TemplateStore
	events    syncx.Sink
	secret    SecretVerifier
	now       func() time.Time
}

type Option func(*Service)

func WithEvents(sink syncx.Sink) Option {
	return func(s *Service) { s.events = sink }
}

func WithTemplateSecret(v SecretVerifier) Option {
	return func(s *Service) { s.secret = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(tests TestStore, sessions SessionStore, templates TemplateStore, opts ...Option) *Service {
	s := &Service{
		tests:     tests,
		sessions:  sessions,
		templates: templates,
		events:    syncx.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, typ, key string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("event %s %s: encode: %v", typ, key, err)
		return
	}
	if err := s.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(b), CreatedAt: s.now().Unix()}); err != nil {
		log.Printf("event %s %s: %v", typ, key, err)
	}
}

// newTestID returns the first group of a UUIDv4, e.g. "a3f5b2c1".
func newTestID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// insertTest stores t under a fresh id, drawing again if the id is taken.
func (s *Service) insertTest(ctx context.Context, t Test) (Test, error) {
	for i := 0; i < 5; i++ {
		t.ID = newTestID()
		err := s.tests.PutTest(ctx, t)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Test{}, fmt.Errorf("store test: %w", err)
		}
		return t, nil
	}
	return Test{}, errors.New("could not allocate a unique test id")
}

type Created struct {
	TestID        string `json:"testId"`
	TestName      string `json:"testName"`
	QuestionCount int    `json:"questionCount"`
}

func (s *Service) CreateTest(ctx context.Context, in CreateTestInput) (Created, error) {
	t, err := buildTest(in, "", s.now())
	if err != nil {
		return Created{}, err
	}
	if t, err = s.insertTest(ctx, t); err != nil {
		return Created{}, err
	}
	log.Printf("created test %q with id %s", t.Name, t.ID)
	out := Created{TestID: t.ID, TestName: t.Name, QuestionCount: t.QuestionCount()}
	s.emit(ctx, EventTestCreated, t.ID, out)
	return out, nil
}

type SectionInfo struct {
	SubjectID     string `json:"subject_id"`
	SubjectName   string `json:"subject_name"`
	QuestionCount int    `json:"questionCount"`
}

type TestInfo struct {
	TestID        string        `json:"testId"`
	TestName      string        `json:"testName"`
	QuestionCount int           `json:"questionCount"`
	TimerMinutes  int           `json:"timerMinutes"`
	CorrectMark   float64       `json:"correctMark"`
	WrongMark     float64       `json:"wrongMark"`
	IsBilingual   bool          `json:"isBilingual"`
	IsSubjectWise bool          `json:"isSubjectWise"`
	Sections      []SectionInfo `json:"sections,omitempty"`
}

func infoOf(t Test) TestInfo {
	info := TestInfo{
		TestID:        t.ID,
		TestName:      t.Name,
		QuestionCount: t.QuestionCount(),
		TimerMinutes:  t.TimerMinutes,
		CorrectMark:   t.CorrectMark,
		WrongMark:     t.WrongMark,
		IsBilingual:   t.IsBilingual(),
		IsSubjectWise: t.IsSubjectWise,
	}
	if t.IsSubjectWise {
		for _, sec := range t.Sections {
			info.Sections = append(info.Sections, SectionInfo{
				SubjectID:     sec.SubjectID,
				SubjectName:   sec.SubjectName,
				QuestionCount: len(sec.Questions),
			})
		}
	}
	return info
}

func (s *Service) TestInfo(ctx context.Context, testID string) (TestInfo, error) {
	if testID == DefaultTestID {
		return s.DefaultInfo(ctx)
	}
	t, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return TestInfo{}, err
	}
	return infoOf(t), nil
}

// loadTest resolves the test a session was started against. Sessions stored
// before default versions existed carry an empty id and get the current default.
func (s *Service) loadTest(ctx context.Context, testID string) (Test, error) {
	if testID == "" || testID == DefaultTestID {
		t, _, err := s.currentDefault(ctx)
		return t, err
	}
	return s.tests.GetTest(ctx, testID)
}

// StartSession opens a new attempt. An empty testID (or DefaultTestID) starts
// the default test; the session is bound to the default's current version.
func (s *Service) StartSession(ctx context.Context, testID string) (StartedSession, error) {
	if testID == DefaultTestID {
		testID = ""
	}
	var (
		t   Test
		err error
	)
	if testID == "" {
		t, err = s.bindDefault(ctx)
	} else {
		t, err = s.tests.GetTest(ctx, testID)
	}
	if err != nil {
		return StartedSession{}, err
	}
	sess := Session{
		ID:        uuid.NewString(),
		TestID:    t.ID,
		StartTime: s.now(),
		Answers:   map[QuestionID]string{},
		Skipped:   []QuestionID{},
	}
	if err := s.sessions.PutSession(ctx, sess); err != nil {
		return StartedSession{}, fmt.Errorf("store session: %w", err)
	}
	out := Sanitize(t, sess.ID)
	if testID == "" {
		out.TestID, out.TestName = "", ""
	}
	s.emit(ctx, EventSessionStarted, sess.ID, map[string]string{"testId": t.ID})
	return out, nil
}

// RecordAnswer sets or clears one answer. An empty selection is a skip.
func (s *Service) RecordAnswer(ctx context.Context, sessionID string, questionID QuestionID, selected string) error {
	if questionID == "" {
		return invalid("questionId is required")
	}
	_, err := s.sessions.UpdateSession(ctx, sessionID, func(sess *Session) error {
		return sess.Record(questionID, selected)
	})
	return err
}

// EndSession freezes the session and scores it. Ending an already ended
// session returns the stored result unchanged.
func (s *Service) EndSession(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	if sess.Ended() && sess.Result != nil {
		return *sess.Result, nil
	}
	t, err := s.loadTest(ctx, sess.TestID)
	if err != nil {
		return Summary{}, err
	}

	first := false
	sess, err = s.sessions.UpdateSession(ctx, sessionID, func(x *Session) error {
		if x.Ended() && x.Result != nil {
			return nil
		}
		end := s.now()
		sum := score(t, *x)
		x.EndTime, x.Result = &end, &sum
		first = true
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	if first {
		log.Printf("session %s ended: %d/%d correct, score %.2f", sess.ID, sess.Result.CorrectCount, sess.Result.TotalQuestions, sess.Result.Score)
		s.emit(ctx, EventSessionEnded, sess.ID, sess.Result)
	}
	return *sess.Result, nil
}

// Result returns the cached summary with a per-question review.
func (s *Service) Result(ctx context.Context, sessionID string) (ResultView, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return ResultView{}, err
	}
	if !sess.Ended() {
		return ResultView{}, ErrNotSubmitted
	}
	t, err := s.loadTest(ctx, sess.TestID)
	if err != nil {
		return ResultView{}, err
	}
	return review(t, sess), nil
}
