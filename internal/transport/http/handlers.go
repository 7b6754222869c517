package http

import (
	"net/http"

	"ramadan-quiz-service/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userInfo `json:"user"`
}

type userInfo struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

func infoOf(u domain.User) userInfo {
	return userInfo{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := a.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: infoOf(user)})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: infoOf(user)})
}

func (a *API) handleEnter(w http.ResponseWriter, r *http.Request, user domain.User) {
	view, err := a.quiz.Enter(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request, user domain.User) {
	view, err := a.quiz.StartSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	QuestionID  string `json:"questionId" validate:"required"`
	ChosenIndex *int   `json:"chosenIndex" validate:"required"`
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req answerRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := a.quiz.SubmitAnswer(r.Context(), user.ID, req.QuestionID, *req.ChosenIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleBonus(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req answerRequest
	if err := decodeValid(a, r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := a.quiz.SubmitBonus(r.Context(), user.ID, req.QuestionID, *req.ChosenIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request, _ domain.User) {
	entries, err := a.quiz.Leaderboard(r.Context(), 100)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request, user domain.User) {
	view, err := a.quiz.Dashboard(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
