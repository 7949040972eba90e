package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
)

type message struct {
	Message string `json:"message"`
}

func SubmitAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID      string          `json:"sessionId"`
			QuestionID     exam.QuestionID `json:"questionId"`
			SelectedOption *string         `json:"selectedOption"` // null clears the answer
		}
		if !decode(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeErr(w, http.StatusBadRequest, "sessionId required")
			return
		}
		sel := ""
		if req.SelectedOption != nil {
			sel = *req.SelectedOption
		}
		if err := svc.RecordAnswer(r.Context(), req.SessionID, req.QuestionID, sel); err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, message{"Recorded"})
	}
}

func EndTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"sessionId"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeErr(w, http.StatusBadRequest, "sessionId required")
			return
		}
		sum, err := svc.EndSession(r.Context(), req.SessionID)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Message string       `json:"message"`
			Result  exam.Summary `json:"result"`
		}{"Test submitted", sum})
	}
}

func ResultHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Result(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
