package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
	"github.com/mind-engage/mindengage-testpad/internal/storage"
)

type Deps struct {
	Service     *exam.Service
	Blobs       storage.BlobStore // nil disables upload and /assets
	PublicURL   string
	CORSOrigins []string
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
	// Events and Admin together enable GET /api/events.
	Events EventLister
	Admin  exam.SecretVerifier
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Private-Code"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	svc := d.Service
	r.Route("/api", func(ar chi.Router) {
		ar.Post("/test/create", CreateTestHandler(svc))
		ar.Get("/test/{testId}/info", TestInfoHandler(svc))
		ar.Post("/test/{testId}/start", StartTestHandler(svc))

		ar.Post("/test/save", SaveTemplateHandler(svc))
		ar.Get("/tests/saved", ListTemplatesHandler(svc))
		ar.Get("/tests/saved/{id}", LoadTemplateHandler(svc))

		ar.Post("/submit-answer", SubmitAnswerHandler(svc))
		ar.Post("/end", EndTestHandler(svc))
		ar.Get("/result/{sessionId}", ResultHandler(svc))

		// default test
		ar.Post("/questions", UploadQuestionsHandler(svc))
		ar.Post("/config", ConfigHandler(svc))
		ar.Post("/start", LegacyStartHandler(svc))
		ar.Get("/info", LegacyInfoHandler(svc))

		ar.Get("/ip", ServerIPHandler())
		if d.Events != nil && d.Admin != nil {
			ar.Get("/events", EventsHandler(d.Events, d.Admin))
		}
		if d.Blobs != nil {
			ar.Post("/upload", UploadImageHandler(d.Blobs, d.PublicURL))
		}
	})
	if d.Blobs != nil {
		r.Route("/assets", func(ar chi.Router) {
			MountAssets(ar, d.Blobs)
		})
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Online Test API is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				log.Printf("readyz: %v", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})
	return r
}
