package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
)

// UploadQuestionsHandler accepts either a bare array or {"questions": [...]}.
func UploadQuestionsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "read body")
			return
		}
		var qs []exam.Question
		trimmed := bytes.TrimSpace(body)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '[':
			if err := json.Unmarshal(trimmed, &qs); err != nil {
				writeErr(w, http.StatusBadRequest, "bad json")
				return
			}
		default:
			var wrapped struct {
				Questions []exam.Question `json:"questions"`
			}
			if err := json.Unmarshal(trimmed, &wrapped); err != nil || wrapped.Questions == nil {
				writeErr(w, http.StatusBadRequest, "Invalid format")
				return
			}
			qs = wrapped.Questions
		}
		n, err := svc.UploadDefaultQuestions(r.Context(), qs)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Questions uploaded successfully",
			"count":   n,
		})
	}
}

func ConfigHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ConfigInput
		if !decode(w, r, &in) {
			return
		}
		cfg, err := svc.SetDefaultConfig(r.Context(), in)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Configuration updated successfully",
			"config":  cfg,
		})
	}
}

func LegacyStartHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.StartSession(r.Context(), "")
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func LegacyInfoHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.DefaultInfo(r.Context())
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"questionCount": info.QuestionCount,
			"timerMinutes":  info.TimerMinutes,
			"correctMark":   info.CorrectMark,
			"wrongMark":     info.WrongMark,
		})
	}
}
