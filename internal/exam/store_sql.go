package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// content is the layout part of a test or template, stored as one JSON column.
type content struct {
	Questions     []Question     `json:"questions,omitempty"`
	QuestionsOdia []Question     `json:"questionsOdia,omitempty"`
	Sections      []Section      `json:"sections,omitempty"`
	Images        map[int]string `json:"images,omitempty"`
	Alias         string         `json:"alias,omitempty"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	cj, err := json.Marshal(content{
		Questions:     t.Questions,
		QuestionsOdia: t.QuestionsOdia,
		Sections:      t.Sections,
		Images:        t.Images,
		Alias:         t.Alias,
	})
	if err != nil {
		return err
	}
	q := `INSERT INTO tests (id,name,timer_minutes,correct_mark,wrong_mark,is_subject_wise,content_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`
	if t.ID == DefaultTestID {
		q = `INSERT INTO tests (id,name,timer_minutes,correct_mark,wrong_mark,is_subject_wise,content_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, timer_minutes=EXCLUDED.timer_minutes,
			correct_mark=EXCLUDED.correct_mark, wrong_mark=EXCLUDED.wrong_mark,
			is_subject_wise=EXCLUDED.is_subject_wise, content_json=EXCLUDED.content_json,
			created_at=EXCLUDED.created_at`
	}
	res, err := s.db.ExecContext(ctx, q,
		t.ID, t.Name, t.TimerMinutes, t.CorrectMark, t.WrongMark, t.IsSubjectWise, string(cj), t.CreatedAt.UnixMilli())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: test %q", ErrConflict, t.ID)
	}
	return nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,timer_minutes,correct_mark,wrong_mark,is_subject_wise,content_json,created_at
		FROM tests WHERE id=$1`, id)
	var (
		t       Test
		cjson   string
		created int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.TimerMinutes, &t.CorrectMark, &t.WrongMark, &t.IsSubjectWise, &cjson, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, fmt.Errorf("%w: test %q", ErrNotFound, id)
		}
		return Test{}, err
	}
	var c content
	if err := json.Unmarshal([]byte(cjson), &c); err != nil {
		return Test{}, fmt.Errorf("decode test %q: %w", id, err)
	}
	t.Questions, t.QuestionsOdia, t.Sections, t.Images = c.Questions, c.QuestionsOdia, c.Sections, c.Images
	t.Alias = c.Alias
	t.CreatedAt = time.UnixMilli(created)
	return t, nil
}

func (s *SQLStore) PutSession(ctx context.Context, sess Session) error {
	return s.writeSession(ctx, s.db, sess, true)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) writeSession(ctx context.Context, db execer, sess Session, insert bool) error {
	if sess.Answers == nil {
		sess.Answers = map[QuestionID]string{}
	}
	if sess.Skipped == nil {
		sess.Skipped = []QuestionID{}
	}
	aj, err := json.Marshal(sess.Answers)
	if err != nil {
		return err
	}
	sj, err := json.Marshal(sess.Skipped)
	if err != nil {
		return err
	}
	var ended sql.NullInt64
	if sess.EndTime != nil {
		ended = sql.NullInt64{Int64: sess.EndTime.UnixMilli(), Valid: true}
	}
	var result sql.NullString
	if sess.Result != nil {
		rj, err := json.Marshal(sess.Result)
		if err != nil {
			return err
		}
		result = sql.NullString{String: string(rj), Valid: true}
	}
	var testID sql.NullString
	if sess.TestID != "" {
		testID = sql.NullString{String: sess.TestID, Valid: true}
	}

	if insert {
		_, err = db.ExecContext(ctx, `INSERT INTO sessions (id,test_id,started_at,ended_at,answers_json,skipped_json,result_json)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			sess.ID, testID, sess.StartTime.UnixMilli(), ended, string(aj), string(sj), result)
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE sessions SET ended_at=$1, answers_json=$2, skipped_json=$3, result_json=$4 WHERE id=$5`,
		ended, string(aj), string(sj), result, sess.ID)
	return err
}

const sessionCols = `id,test_id,started_at,ended_at,answers_json,skipped_json,result_json`

func scanSession(row rowScanner, id string) (Session, error) {
	var (
		sess    Session
		testID  sql.NullString
		started int64
		ended   sql.NullInt64
		aj, sj  string
		rj      sql.NullString
	)
	if err := row.Scan(&sess.ID, &testID, &started, &ended, &aj, &sj, &rj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("%w: session %q", ErrNotFound, id)
		}
		return Session{}, err
	}
	sess.TestID = testID.String
	sess.StartTime = time.UnixMilli(started)
	if ended.Valid {
		t := time.UnixMilli(ended.Int64)
		sess.EndTime = &t
	}
	if err := json.Unmarshal([]byte(aj), &sess.Answers); err != nil {
		return Session{}, fmt.Errorf("decode answers of session %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(sj), &sess.Skipped); err != nil {
		return Session{}, fmt.Errorf("decode skipped of session %q: %w", id, err)
	}
	if rj.Valid {
		sess.Result = &Summary{}
		if err := json.Unmarshal([]byte(rj.String), sess.Result); err != nil {
			return Session{}, fmt.Errorf("decode result of session %q: %w", id, err)
		}
	}
	return sess, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id=$1`, id)
	return scanSession(row, id)
}

func (s *SQLStore) UpdateSession(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	q := `SELECT ` + sessionCols + ` FROM sessions WHERE id=$1`
	if s.driver == "postgres" {
		q += ` FOR UPDATE`
	}
	sess, err := scanSession(tx.QueryRowContext(ctx, q, id), id)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&sess); err != nil {
		return Session{}, err
	}
	if err := s.writeSession(ctx, tx, sess, false); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) PutTemplate(ctx context.Context, t Template) error {
	cj, err := json.Marshal(content{
		Questions:     t.Questions,
		QuestionsOdia: t.QuestionsOdia,
		Sections:      t.Sections,
		Images:        t.Images,
	})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO saved_tests (id,test_id,test_name,timer_minutes,correct_mark,wrong_mark,is_subject_wise,content_json,saved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.TestID, t.TestName, t.Settings.TimerMinutes, t.Settings.CorrectMark, t.Settings.WrongMark,
		t.IsSubjectWise, string(cj), t.SavedAt.UnixMilli())
	return err
}

const templateCols = `id,test_id,test_name,timer_minutes,correct_mark,wrong_mark,is_subject_wise,content_json,saved_at`

func scanTemplate(row rowScanner) (Template, error) {
	var (
		t     Template
		cjson string
		saved int64
	)
	if err := row.Scan(&t.ID, &t.TestID, &t.TestName, &t.Settings.TimerMinutes, &t.Settings.CorrectMark,
		&t.Settings.WrongMark, &t.IsSubjectWise, &cjson, &saved); err != nil {
		return Template{}, err
	}
	var c content
	if err := json.Unmarshal([]byte(cjson), &c); err != nil {
		return Template{}, fmt.Errorf("decode saved test %q: %w", t.ID, err)
	}
	t.Questions, t.QuestionsOdia, t.Sections, t.Images = c.Questions, c.QuestionsOdia, c.Sections, c.Images
	t.SavedAt = time.UnixMilli(saved)
	return t, nil
}

func (s *SQLStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `SELECT `+templateCols+` FROM saved_tests WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("%w: saved test %q", ErrNotFound, id)
	}
	return t, err
}

func (s *SQLStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateCols+` FROM saved_tests ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
