package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/errutil"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Post("/chat", s.chatHandler)
		r.Get("/state", s.stateHandler)
		r.Post("/reset", s.resetHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply      string         `json:"reply"`
	SessionID  string         `json:"session_id"`
	TurnNumber int            `json:"turn_number"`
	State      *stateResponse `json:"state"`
}

type stateResponse struct {
	UserID    string          `json:"user_id"`
	Mood      float64         `json:"mood"`
	Energy    float64         `json:"energy"`
	Affection float64         `json:"affection"`
	Trust     float64         `json:"trust"`
	Phase     string          `json:"phase"`
	Scene     string          `json:"scene"`
	Flags     map[string]bool `json:"flags"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toStateResponse(state *model.MindState) *stateResponse {
	return &stateResponse{
		UserID:    string(state.UserID),
		Mood:      state.Biometrics.Mood,
		Energy:    state.Biometrics.Energy,
		Affection: state.Biometrics.Affection,
		Trust:     state.Biometrics.Trust,
		Phase:     state.Scenario.Phase,
		Scene:     state.Scenario.Scene,
		Flags:     state.Scenario.Flags,
		UpdatedAt: state.UpdatedAt,
	}
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(chi.URLParam(r, "userID"))
	if !userID.Validate() {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrValidation, "invalid user ID"), http.StatusBadRequest)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode chat request"), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrValidation, "message is required"), http.StatusBadRequest)
		return
	}

	result, err := s.uc.ProcessTurn(r.Context(), userID, req.Message)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, r, &chatResponse{
		Reply:      result.Reply,
		SessionID:  string(result.SessionID),
		TurnNumber: result.TurnNumber,
		State:      toStateResponse(result.State),
	})
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(chi.URLParam(r, "userID"))
	if !userID.Validate() {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrValidation, "invalid user ID"), http.StatusBadRequest)
		return
	}

	state, err := s.uc.GetState(r.Context(), userID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, r, toStateResponse(state))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(chi.URLParam(r, "userID"))
	if !userID.Validate() {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrValidation, "invalid user ID"), http.StatusBadRequest)
		return
	}

	if err := s.uc.Reset(r.Context(), userID); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, r, map[string]string{"status": "ok"})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
