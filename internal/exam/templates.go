package exam

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// SaveTemplate copies a live test into the template library. The code is
// checked before anything is looked up or written.
func (s *Service) SaveTemplate(ctx context.Context, testID, code string) (string, error) {
	if s.secret == nil || !s.secret.Verify(code) {
		return "", fmt.Errorf("%w: invalid private code", ErrForbidden)
	}
	if testID == "" {
		return "", invalid("testId is required")
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return "", err
	}
	tpl := Template{
		ID:            uuid.NewString(),
		TestID:        t.ID,
		TestName:      t.Name,
		SavedAt:       s.now(),
		Settings:      Settings{TimerMinutes: t.TimerMinutes, CorrectMark: t.CorrectMark, WrongMark: t.WrongMark},
		IsSubjectWise: t.IsSubjectWise,
		Questions:     t.Questions,
		QuestionsOdia: t.QuestionsOdia,
		Sections:      t.Sections,
		Images:        t.Images,
	}
	if err := s.templates.PutTemplate(ctx, tpl); err != nil {
		return "", fmt.Errorf("store saved test: %w", err)
	}
	log.Printf("saved test %s as template %s", t.ID, tpl.ID)
	s.emit(ctx, EventTemplateSaved, tpl.ID, map[string]string{"testId": t.ID})
	return tpl.ID, nil
}

func (t Template) asTest() Test {
	return Test{
		IsSubjectWise: t.IsSubjectWise,
		Questions:     t.Questions,
		QuestionsOdia: t.QuestionsOdia,
		Sections:      t.Sections,
	}
}

func (t Template) Summary() TemplateSummary {
	body := t.asTest()
	return TemplateSummary{
		ID:            t.ID,
		TestName:      t.TestName,
		SavedAt:       t.SavedAt,
		QuestionCount: body.QuestionCount(),
		IsBilingual:   body.IsBilingual(),
		IsSubjectWise: t.IsSubjectWise,
	}
}

func (s *Service) ListTemplates(ctx context.Context) ([]TemplateSummary, error) {
	tpls, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateSummary, len(tpls))
	for i, t := range tpls {
		out[i] = t.Summary()
	}
	return out, nil
}

func (s *Service) LoadTemplate(ctx context.Context, id string) (Template, error) {
	return s.templates.GetTemplate(ctx, id)
}
