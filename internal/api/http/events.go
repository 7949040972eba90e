package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
	syncx "github.com/mind-engage/mindengage-testpad/internal/sync"
)

type EventLister interface {
	List(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

const maxEventPage = 500

// EventsHandler pages through the event log: GET /api/events?after=<offset>&limit=<n>.
// The admin code goes in the X-Private-Code header.
func EventsHandler(events EventLister, admin exam.SecretVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !admin.Verify(r.Header.Get("X-Private-Code")) {
			writeErr(w, http.StatusForbidden, "invalid private code")
			return
		}
		q := r.URL.Query()
		var after int64
		if v := q.Get("after"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				writeErr(w, http.StatusBadRequest, "after must be a non-negative offset")
				return
			}
			after = n
		}
		limit := 100
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeErr(w, http.StatusBadRequest, "limit must be positive")
				return
			}
			limit = min(n, maxEventPage)
		}
		list, err := events.List(r.Context(), after, limit)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": list})
	}
}
