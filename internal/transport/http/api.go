package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

// API wires the quiz, admin and auth services into an HTTP surface.
type API struct {
	quiz     *app.QuizService
	admin    *app.AdminService
	auth     *app.AuthService
	hub      *app.LeaderboardHub
	validate *validator.Validate
}

func NewAPI(quiz *app.QuizService, admin *app.AdminService, auth *app.AuthService, hub *app.LeaderboardHub) *API {
	return &API{
		quiz:     quiz,
		admin:    admin,
		auth:     auth,
		hub:      hub,
		validate: validator.New(),
	}
}

// Routes registers every endpoint on a fresh mux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)

	mux.HandleFunc("GET /api/quiz", a.withUser(a.handleEnter))
	mux.HandleFunc("POST /api/quiz/start", a.withUser(a.handleStart))
	mux.HandleFunc("POST /api/quiz/answer", a.withUser(a.handleAnswer))
	mux.HandleFunc("POST /api/quiz/bonus", a.withUser(a.handleBonus))
	mux.HandleFunc("GET /api/leaderboard", a.withUser(a.handleLeaderboard))
	mux.HandleFunc("GET /api/dashboard", a.withUser(a.handleDashboard))
	mux.HandleFunc("GET /ws/leaderboard", a.serveLeaderboardWS)

	mux.HandleFunc("GET /api/admin/questions", a.withAdmin(a.handleListQuestions))
	mux.HandleFunc("POST /api/admin/questions", a.withAdmin(a.handleCreateQuestion))
	mux.HandleFunc("DELETE /api/admin/questions/{id}", a.withAdmin(a.handleDeleteQuestion))
	mux.HandleFunc("GET /api/admin/users", a.withAdmin(a.handleListUsers))
	mux.HandleFunc("POST /api/admin/users/{id}/ban", a.withAdmin(a.handleBanUser))
	mux.HandleFunc("GET /api/admin/submissions/{id}", a.withAdmin(a.handleSubmissions))
	mux.HandleFunc("GET /api/admin/settings/quiz", a.withAdmin(a.handleGetQuizEnabled))
	mux.HandleFunc("PUT /api/admin/settings/quiz", a.withAdmin(a.handleSetQuizEnabled))

	return mux
}

type userHandler func(w http.ResponseWriter, r *http.Request, user domain.User)

// withUser rejects requests without a valid bearer token.
func (a *API) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.userFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, user)
	}
}

// withAdmin additionally requires the admin role.
func (a *API) withAdmin(next userHandler) http.HandlerFunc {
	return a.withUser(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		next(w, r, user)
	})
}

func (a *API) userFromRequest(r *http.Request) (domain.User, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return a.auth.Verify(r.Context(), token)
}

func decodeValid(a *API, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadRequest
	}
	if err := a.validate.Struct(dst); err != nil {
		return errBadRequest
	}
	return nil
}

var errBadRequest = errors.New("invalid request payload")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string                 `json:"error"`
	Retryable bool                   `json:"retryable,omitempty"`
	Shortages []domain.TierShortage  `json:"shortages,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// writeError maps the domain taxonomy onto HTTP statuses. Unclassified
// failures are storage-level and reported retryable.
func writeError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientQuestionsError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     insufficient.Error(),
			Shortages: insufficient.Shortages,
		})
		return
	}

	status := http.StatusInternalServerError
	retryable := false
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrBanned), errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrQuizDisabled):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrStaleSubmission),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrSessionNotCompleted),
		errors.Is(err, domain.ErrBonusAnswered),
		errors.Is(err, domain.ErrNoBonusToday):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidOption), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	default:
		retryable = true
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Retryable: retryable})
}
