package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/authz"
	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/fuego-digital/ProspectBoard/pkg/pgstore"
	"github.com/fuego-digital/ProspectBoard/pkg/service"
	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

type ErrorResponse struct {
	Error string `json:"error"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type AcknowledgeRequest struct {
	Acknowledged bool `json:"acknowledged"`
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	token, err := s.app.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		s.log.Warnf("err during login: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (s *Server) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.app.GetUsers(ctx)
	if err != nil {
		s.log.Warnf("err during getting users: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, users)
}

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	if decision := authz.Can(actor, authz.ActionManageUsers, nil); !decision.Allowed {
		s.writeResponse(w, http.StatusForbidden, fmt.Errorf("%w: %s", service.ErrForbidden, decision.Reason))
		return
	}
	var user models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	createdUser, err := s.app.CreateUser(ctx, user)
	if err != nil {
		s.log.Warnf("err during creating user: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, createdUser)
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.app.GetUser(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, pgstore.ErrUserNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during getting user: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, user)
}

func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	var newData models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&newData); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	updatedUser, err := s.app.UpdateUser(ctx, actor, chi.URLParam(r, "id"), newData)
	if err != nil {
		s.writeError(w, "updating user", err)
		return
	}
	s.writeResponse(w, http.StatusOK, updatedUser)
}

func (s *Server) getClientsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.PeriodAll
	}
	clients, err := s.app.GetClients(ctx, viewer, period)
	if err != nil {
		s.log.Warnf("err during getting clients: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, clients)
}

func (s *Server) getClientHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, err := s.app.GetClient(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "getting client", err)
		return
	}
	s.writeResponse(w, http.StatusOK, client)
}

func (s *Server) createClientHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creator, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	var client models.ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	createdClient, err := s.app.CreateClient(ctx, creator, client)
	if err != nil {
		s.writeError(w, "creating client", err)
		return
	}
	s.writeResponse(w, http.StatusCreated, createdClient)
}

func (s *Server) updateClientHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	var newData models.ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&newData); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	updatedClient, err := s.app.UpdateClient(ctx, actor, chi.URLParam(r, "id"), newData)
	if err != nil {
		s.writeError(w, "updating client", err)
		return
	}
	s.writeResponse(w, http.StatusOK, updatedClient)
}

func (s *Server) deleteClientHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	deletedClient, err := s.app.DeleteClient(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "deleting client", err)
		return
	}
	s.writeResponse(w, http.StatusOK, deletedClient)
}

func (s *Server) setClientStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	updatedClient, err := s.app.SetClientStatus(ctx, actor, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, "updating client status", err)
		return
	}
	s.writeResponse(w, http.StatusOK, updatedClient)
}

func (s *Server) acknowledgeClientHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	updatedClient, err := s.app.AcknowledgeClient(ctx, actor, chi.URLParam(r, "id"), req.Acknowledged)
	if err != nil {
		s.writeError(w, "acknowledging client", err)
		return
	}
	s.writeResponse(w, http.StatusOK, updatedClient)
}

func (s *Server) slotsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("date"), time.Local)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("invalid date, expected %s", dateLayout))
		return
	}
	slots, err := s.app.AvailableSlots(ctx, date)
	if err != nil {
		s.writeError(w, "getting slots", err)
		return
	}
	s.writeResponse(w, http.StatusOK, slots)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.PeriodMonth
	}
	stats, err := s.app.DashboardStats(ctx, viewer, period)
	if err != nil {
		s.log.Warnf("err during getting stats: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, stats)
}

func (s *Server) rankingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rankings, err := s.app.Rankings(ctx)
	if err != nil {
		s.log.Warnf("err during getting rankings: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, rankings)
}

func (s *Server) upcomingMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := s.currentUser(ctx)
	if err != nil {
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	}
	meetings, err := s.app.UpcomingMeetings(ctx, viewer)
	if err != nil {
		s.log.Warnf("err during getting upcoming meetings: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

// writeError maps service and store errors onto HTTP statuses so failed
// mutations always leave a visible signal.
func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, pgstore.ErrUserNotFound), errors.Is(err, pgstore.ErrClientNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrForbidden):
		s.writeResponse(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrSlotTaken):
		s.writeResponse(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidMeetLink),
		errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrMeetingDate),
		errors.Is(err, service.ErrPastDate):
		s.writeResponse(w, http.StatusBadRequest, err)
	default:
		s.log.Warnf("err during %s: %v", action, err)
		s.writeResponse(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding responce: %v", err)
	}
}
