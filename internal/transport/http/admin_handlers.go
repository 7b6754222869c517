package http

import (
	"net/http"
	"time"

	"ramadan-quiz-service/internal/domain"
)

type questionRequest struct {
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,len=4,dive,required"`
	CorrectOption *int     `json:"correctOption" validate:"required,min=0,max=3"`
	Difficulty    string   `json:"difficulty" validate:"required_without=Bonus"`
	Bonus         bool     `json:"bonus"`
	BonusDate     string   `json:"bonusDate"`
}

func (a *API) handleCreateQuestion(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var req questionRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	question, err := a.admin.CreateQuestion(r.Context(), domain.Question{
		Text:          req.Text,
		Options:       req.Options,
		CorrectOption: *req.CorrectOption,
		Difficulty:    domain.Tier(req.Difficulty),
		Bonus:         req.Bonus,
		BonusDate:     req.BonusDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request, _ domain.User) {
	questions, err := a.admin.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if err := a.admin.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adminUser struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Name             string      `json:"name"`
	Role             domain.Role `json:"role"`
	Banned           bool        `json:"banned"`
	LastActive       time.Time   `json:"lastActive"`
	DaysParticipated int         `json:"daysParticipated"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	users, err := a.admin.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]adminUser, len(users))
	for i, u := range users {
		out[i] = adminUser{
			ID:               u.ID,
			Email:            u.Email,
			Name:             u.Name,
			Role:             u.Role,
			Banned:           u.Banned,
			LastActive:       u.LastActive,
			DaysParticipated: u.DaysParticipated,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type banRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

func (a *API) handleBanUser(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var req banRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.admin.SetBanned(r.Context(), r.PathValue("id"), *req.Banned); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSubmissions(w http.ResponseWriter, r *http.Request, _ domain.User) {
	submissions, err := a.admin.Submissions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

type quizEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

func (a *API) handleGetQuizEnabled(w http.ResponseWriter, r *http.Request, _ domain.User) {
	enabled, err := a.admin.QuizEnabled(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizEnabledResponse{Enabled: enabled})
}

type quizEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (a *API) handleSetQuizEnabled(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var req quizEnabledRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.admin.SetQuizEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizEnabledResponse{Enabled: *req.Enabled})
}
