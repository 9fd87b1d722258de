package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
)

// API serves the REST endpoints and the websocket upgrade.
type API struct {
	service   *app.QuizService
	validator quizspec.Validator
	ws        *WSHandler
	log       logrus.FieldLogger
}

func NewAPI(service *app.QuizService, validator quizspec.Validator, log logrus.FieldLogger) *API {
	return &API{
		service:   service,
		validator: validator,
		ws:        NewWSHandler(service, log),
		log:       log,
	}
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LogMiddleware(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", a.ws.ServeWS)
	r.Route("/api", func(r chi.Router) {
		r.Post("/quiz/validate", a.handleValidate)
		r.Post("/quiz/share", a.handleShare)
		r.Get("/rooms", a.handleListRooms)
		r.Post("/rooms", a.handleCreateRoom)
		r.Get("/rooms/{code}", a.handleGetRoom)
	})
	return r
}

// LogMiddleware logs every request with its method, path and duration.
func LogMiddleware(log logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("http request")
		})
	}
}

type documentRequest struct {
	YAML string `json:"yaml"`
}

type validateResponse struct {
	Valid  bool                `json:"valid"`
	Spec   *domain.QuizSpec    `json:"spec"`
	Errors []domain.Diagnostic `json:"errors"`
}

type shareResponse struct {
	Token string `json:"token"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Errors []domain.Diagnostic `json:"errors,omitempty"`
}

func (a *API) readDocument(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req documentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return "", false
	}
	if strings.TrimSpace(req.YAML) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "yaml is required"})
		return "", false
	}
	return req.YAML, true
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.readDocument(w, r)
	if !ok {
		return
	}
	res := a.validator.Validate(doc)
	errs := res.Errors
	if errs == nil {
		errs = []domain.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: res.Valid, Spec: res.Spec, Errors: errs})
}

func (a *API) handleShare(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.readDocument(w, r)
	if !ok {
		return
	}
	if res := a.validator.Validate(doc); !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid quiz document", Errors: res.Errors})
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{Token: quizspec.EncodeShareToken(doc)})
}

func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	v, err := a.service.CreateRoom(r.Context())
	if err != nil {
		a.log.WithError(err).Error("create room failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: a.service.Rooms()})
}

func (a *API) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	v, err := a.service.View(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, v.ForPlayer(""))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
