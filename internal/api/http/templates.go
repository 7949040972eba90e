package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
)

func SaveTemplateHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TestID      string `json:"testId"`
			PrivateCode string `json:"privateCode"`
		}
		if !decode(w, r, &req) {
			return
		}
		id, err := svc.SaveTemplate(r.Context(), req.TestID, req.PrivateCode)
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Test saved successfully",
			"savedTestId": id,
		})
	}
}

func ListTemplatesHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTemplates(r.Context())
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"savedTests": list})
	}
}

func LoadTemplateHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, err := svc.LoadTemplate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}
