package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
)

func CreateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.CreateTestInput
		if !decode(w, r, &in) {
			return
		}
		out, err := svc.CreateTest(r.Context(), in)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Message string `json:"message"`
			exam.Created
		}{"Test created successfully", out})
	}
}

func TestInfoHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.TestInfo(r.Context(), chi.URLParam(r, "testId"))
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func StartTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testId")
		if id == "" {
			writeErr(w, http.StatusBadRequest, "testId required")
			return
		}
		out, err := svc.StartSession(r.Context(), id)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
