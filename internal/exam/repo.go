package exam

import "context"

// TestStore holds test definitions. PutTest never overwrites a test: a taken id
// fails with ErrConflict. The default pointer record is the one exception.
type TestStore interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
}

// SessionStore holds candidate sessions. UpdateSession applies fn to the stored
// session atomically and persists the result; if fn returns an error nothing is written.
type SessionStore interface {
	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, id string, fn func(*Session) error) (Session, error)
}

// TemplateStore holds saved templates. ListTemplates returns newest first.
type TemplateStore interface {
	PutTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}

// Store is the full set a single backend usually provides.
type Store interface {
	TestStore
	SessionStore
	TemplateStore
}
