package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// DefaultTestID names the pointer to the test used when a session is started
// without one. Every change to the default publishes a new immutable version
// under a generated id and moves the pointer; sessions keep the version id, so
// later changes never reach a session already started.
const DefaultTestID = "default"

func builtinDefault() Test {
	return Test{
		TimerMinutes: DefaultTimerMinutes,
		CorrectMark:  DefaultCorrectMark,
		WrongMark:    DefaultWrongMark,
		Questions:    []Question{},
	}
}

// currentDefault returns the published default version, or the builtin
// settings (found=false) when nothing has been published yet.
func (s *Service) currentDefault(ctx context.Context) (t Test, found bool, err error) {
	ptr, err := s.tests.GetTest(ctx, DefaultTestID)
	if errors.Is(err, ErrNotFound) {
		return builtinDefault(), false, nil
	}
	if err != nil {
		return Test{}, false, err
	}
	if ptr.Alias == "" {
		return Test{}, false, errors.New("default test pointer has no target")
	}
	t, err = s.tests.GetTest(ctx, ptr.Alias)
	if err != nil {
		return Test{}, false, fmt.Errorf("resolve default test %s: %w", ptr.Alias, err)
	}
	return t, true, nil
}

// bindDefault returns a stored version a session can refer to, publishing the
// builtin settings on first use.
func (s *Service) bindDefault(ctx context.Context) (Test, error) {
	t, found, err := s.currentDefault(ctx)
	if err != nil || found {
		return t, err
	}
	return s.publishDefault(ctx, t)
}

func (s *Service) publishDefault(ctx context.Context, t Test) (Test, error) {
	t.CreatedAt = s.now()
	t, err := s.insertTest(ctx, t)
	if err != nil {
		return Test{}, err
	}
	ptr := Test{ID: DefaultTestID, Name: t.Name, Alias: t.ID, CreatedAt: t.CreatedAt}
	if err := s.tests.PutTest(ctx, ptr); err != nil {
		return Test{}, fmt.Errorf("store default pointer: %w", err)
	}
	log.Printf("default test now %s (%d questions)", t.ID, t.QuestionCount())
	return t, nil
}

// SeedDefault replaces the default test with a full definition, e.g. one read
// from a question-bank file at startup.
func (s *Service) SeedDefault(ctx context.Context, in CreateTestInput) (Created, error) {
	t, err := buildTest(in, "", s.now())
	if err != nil {
		return Created{}, err
	}
	if t, err = s.publishDefault(ctx, t); err != nil {
		return Created{}, err
	}
	return Created{TestID: DefaultTestID, TestName: t.Name, QuestionCount: t.QuestionCount()}, nil
}

// UploadDefaultQuestions replaces the default question list, keeping its marking.
func (s *Service) UploadDefaultQuestions(ctx context.Context, qs []Question) (int, error) {
	if err := checkQuestions(qs, nil, map[QuestionID]bool{}); err != nil {
		return 0, err
	}
	t, _, err := s.currentDefault(ctx)
	if err != nil {
		return 0, err
	}
	t.IsSubjectWise = false
	t.Sections = nil
	t.Images = nil
	t.QuestionsOdia = nil
	t.Questions = cloneQuestions(qs)
	if t.Questions == nil {
		t.Questions = []Question{}
	}
	if t, err = s.publishDefault(ctx, t); err != nil {
		return 0, err
	}
	return len(t.Questions), nil
}

// ConfigInput updates the default marking. Zero timer and nil marks leave the
// current values in place.
type ConfigInput struct {
	TimerMinutes int      `json:"timerMinutes"`
	CorrectMark  *float64 `json:"correctMark"`
	WrongMark    *float64 `json:"wrongMark"`
}

func (s *Service) SetDefaultConfig(ctx context.Context, in ConfigInput) (Settings, error) {
	t, _, err := s.currentDefault(ctx)
	if err != nil {
		return Settings{}, err
	}
	if in.TimerMinutes > 0 {
		t.TimerMinutes = in.TimerMinutes
	}
	if in.CorrectMark != nil {
		t.CorrectMark = *in.CorrectMark
	}
	if in.WrongMark != nil {
		t.WrongMark = *in.WrongMark
	}
	if t, err = s.publishDefault(ctx, t); err != nil {
		return Settings{}, err
	}
	return Settings{TimerMinutes: t.TimerMinutes, CorrectMark: t.CorrectMark, WrongMark: t.WrongMark}, nil
}

func (s *Service) DefaultInfo(ctx context.Context) (TestInfo, error) {
	t, _, err := s.currentDefault(ctx)
	if err != nil {
		return TestInfo{}, err
	}
	info := infoOf(t)
	info.TestID = DefaultTestID
	return info, nil
}
