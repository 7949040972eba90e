package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	api "github.com/mind-engage/mindengage-testpad/internal/api/http"
	"github.com/mind-engage/mindengage-testpad/internal/auth"
	"github.com/mind-engage/mindengage-testpad/internal/db"
	"github.com/mind-engage/mindengage-testpad/internal/exam"
	syncx "github.com/mind-engage/mindengage-testpad/internal/sync"
)

func newEventServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	repo := syncx.NewEventRepo(conn)
	admin := auth.NewSharedSecret("admin123", "")
	st := exam.NewInMemoryStore()
	svc := exam.NewService(st, st, st, exam.WithEvents(repo), exam.WithTemplateSecret(admin))
	srv := httptest.NewServer(api.NewRouter(api.Deps{Service: svc, Events: repo, Admin: admin}))
	t.Cleanup(srv.Close)
	return srv
}

func getEvents(t *testing.T, srv *httptest.Server, query, code string) (int, []syncx.Event) {
	t.Helper()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", srv.URL+"/api/events"+query, nil)
	if code != "" {
		req.Header.Set("X-Private-Code", code)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/events%s: %v", query, err)
	}
	defer res.Body.Close()
	var body struct {
		Events []syncx.Event `json:"events"`
	}
	if res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Events == nil {
			t.Fatal("events is null, want a list")
		}
	}
	return res.StatusCode, body.Events
}

func TestEventsFeed(t *testing.T) {
	srv := newEventServer(t)

	if code, events := getEvents(t, srv, "", "admin123"); code != 200 || len(events) != 0 {
		t.Fatalf("empty log: status %d, %d events", code, len(events))
	}

	var created map[string]any
	if code := call(t, srv, "POST", "/api/test/create", flatTest, &created); code != 200 {
		t.Fatalf("create: status %d", code)
	}
	var started map[string]any
	call(t, srv, "POST", "/api/test/"+created["testId"].(string)+"/start", nil, &started)
	call(t, srv, "POST", "/api/end", map[string]any{"sessionId": started["sessionId"]}, nil)

	code, events := getEvents(t, srv, "", "admin123")
	if code != 200 || len(events) != 3 {
		t.Fatalf("status %d, events %+v", code, events)
	}
	want := []string{exam.EventTestCreated, exam.EventSessionStarted, exam.EventSessionEnded}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("event %d type %q, want %q", i, e.Type, want[i])
		}
	}
	if strings.Contains(events[1].DataJSON, `"testId":""`) {
		t.Fatalf("start event lost its test id: %s", events[1].DataJSON)
	}

	_, page := getEvents(t, srv, "?limit=1", "admin123")
	if len(page) != 1 || page[0].Offset != events[0].Offset {
		t.Fatalf("first page = %+v", page)
	}
	_, rest := getEvents(t, srv, "?after="+strconv.FormatInt(page[0].Offset, 10), "admin123")
	if len(rest) != 2 || rest[0].Type != exam.EventSessionStarted {
		t.Fatalf("after first page = %+v", rest)
	}
}

func TestEventsFeedRejects(t *testing.T) {
	srv := newEventServer(t)
	tests := []struct {
		query, code string
		want        int
	}{
		{"", "", 403},
		{"", "wrong", 403},
		{"?after=x", "admin123", 400},
		{"?after=-1", "admin123", 400},
		{"?limit=0", "admin123", 400},
	}
	for _, tc := range tests {
		if code, _ := getEvents(t, srv, tc.query, tc.code); code != tc.want {
			t.Errorf("query %q code %q: status %d, want %d", tc.query, tc.code, code, tc.want)
		}
	}
}

func TestEventsFeedNotMountedWithoutLog(t *testing.T) {
	srv := newServer(t)
	if code, _ := getEvents(t, srv, "", "admin123"); code != 404 {
		t.Fatalf("status %d, want 404", code)
	}
}
