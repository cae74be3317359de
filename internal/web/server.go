package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/schema"
	"github.com/porthealth/porthealth/internal"
	"github.com/porthealth/porthealth/internal/account"
	"github.com/porthealth/porthealth/internal/errorz"
	"github.com/porthealth/porthealth/internal/onboarding"
	"github.com/porthealth/porthealth/internal/web/sessions"
)

// ProfileFinder reads saved patient profiles.
type ProfileFinder interface {
	FindProfile(ctx context.Context, id account.ID) (account.Profile, error)
}

// TokenService issues and verifies the tokens handed to authenticated clients.
type TokenService interface {
	Issue(id account.ID, role account.Role) (string, error)
	Verify(raw string) (account.ID, account.Role, error)
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger       *slog.Logger
	Controller   *onboarding.Controller
	Profiles     ProfileFinder
	SessionStore *sessions.Store
	Tokens       TokenService
	// FlowIdleTimeout is how long an unfinished onboarding session is kept
	// after the device was last seen. Zero means DefaultFlowIdleTimeout.
	FlowIdleTimeout time.Duration
}

// Server is the HTTP adapter the mobile client talks to. It holds no
// business logic, forms are submitted to the onboarding controller and
// the resulting transitions are written back as JSON.
type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	flows   *flows
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
		flows:   newFlows(deps.FlowIdleTimeout),
	}

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status":        "ok",
			"buildRevision": internal.BuildRevision,
		})
	})

	s.mux.HandleFunc("GET /session", s.handleSession)

	s.withFlow("POST /signup", mapSubmit(s, deps.Controller.SubmitSignup))
	s.withFlow("POST /login", mapSubmit(s, deps.Controller.SubmitLogin))
	s.withFlow("POST /profile", mapSubmit(s, deps.Controller.SubmitProfile))

	s.mux.HandleFunc("GET /account", s.handleAccount)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// withFlow registers a handler that needs the onboarding session of the device.
func (s *Server) withFlow(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, s.flowMiddleware(handler))
}

// flowMiddleware looks up the onboarding session of the device that made the
// request and injects it in the context. Devices without a (known) session
// get a new one and a cookie that identifies it.
func (s *Server) flowMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.SessionStore.Get(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		flow, ok := s.lookupFlow(sess)
		if !ok {
			id, fs, err := s.flows.start()
			if err != nil {
				s.handleError(w, r, err)
				return
			}

			flow = deviceFlow{deviceID: id, session: fs}
			sess.SetDeviceID(id)
		}

		if sess.NeedsSave() {
			err = s.deps.SessionStore.Save(r, w, sess)
			if err != nil {
				s.handleError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctxWithFlow(r.Context(), flow)))
	})
}

// lookupFlow returns the onboarding session of the device sess belongs to.
func (s *Server) lookupFlow(sess *sessions.Session) (deviceFlow, bool) {
	id, ok := sess.DeviceID()
	if !ok {
		return deviceFlow{}, false
	}

	fs, ok := s.flows.get(id)
	if !ok {
		return deviceFlow{}, false
	}

	return deviceFlow{deviceID: id, session: fs}, true
}

// handleSession describes the onboarding session of the device. Devices
// without a known session get the anonymous view, no session is started
// for them until they submit a form.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.SessionStore.Get(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	fs := onboarding.NewSession()
	if flow, ok := s.lookupFlow(sess); ok {
		fs = flow.session
	}

	s.writeJSON(w, http.StatusOK, s.deps.Controller.Current(fs))
}

type transitionResponse struct {
	onboarding.Transition
	// Token is only set once the session is authenticated.
	Token string `json:"token,omitempty"`
}

// writeTransition writes t to the response. Once a session is authenticated
// it is handed off with a token and discarded. If no token can be issued the
// session is discarded as well and the device has to log in again.
func (s *Server) writeTransition(w http.ResponseWriter, flow deviceFlow, t onboarding.Transition) error {
	res := transitionResponse{
		Transition: t,
	}

	if !t.Rejected() && t.Stage == onboarding.StageAuthenticated {
		token, err := s.deps.Tokens.Issue(t.AccountID, t.Role)
		s.flows.end(flow.deviceID)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		res.Token = token
	}

	s.writeJSON(w, transitionStatus(t), res)
	return nil
}

type accountResponse struct {
	AccountID account.ID       `json:"accountId"`
	Role      account.Role     `json:"role"`
	Profile   *profileResponse `json:"profile,omitempty"`
}

type profileResponse struct {
	Gender    string `json:"gender"`
	Weight    string `json:"weight"`
	Age       string `json:"age"`
	Height    string `json:"height"`
	Allergies string `json:"allergies"`
	Diet      string `json:"diet"`
}

// handleAccount returns the account a bearer token was issued for.
// Patients get their profile included once it is saved.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		s.handleError(w, r, ErrInvalidToken)
		return
	}

	id, role, err := s.deps.Tokens.Verify(raw)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	res := accountResponse{
		AccountID: id,
		Role:      role,
	}

	if role == account.RolePatient {
		p, err := s.deps.Profiles.FindProfile(r.Context(), id)
		switch {
		case errors.Is(err, errorz.ErrNotFound):
		case err != nil:
			s.handleError(w, r, err)
			return
		default:
			res.Profile = &profileResponse{
				Gender:    p.Gender,
				Weight:    p.Weight,
				Age:       p.Age,
				Height:    p.Height,
				Allergies: p.Allergies,
				Diet:      p.Diet,
			}
		}
	}

	s.writeJSON(w, http.StatusOK, res)
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInvalidToken) {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	if errors.Is(err, errorz.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid input",
			Fields: invalidInput.Keys(),
		})
		return
	}

	s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.deps.Logger.Error("failed to write response", "error", err)
	}
}
