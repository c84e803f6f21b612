package rest

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/fuego-digital/ProspectBoard/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type App interface {
	Login(ctx context.Context, email, password string) (string, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, user models.UserRequest) (models.User, error)
	UpdateUser(ctx context.Context, actor models.User, id string, user models.UserRequest) (models.User, error)
	GetClients(ctx context.Context, viewer models.User, period string) ([]models.Client, error)
	GetClient(ctx context.Context, id string) (models.Client, error)
	CreateClient(ctx context.Context, creator models.User, client models.ClientRequest) (models.Client, error)
	UpdateClient(ctx context.Context, actor models.User, id string, client models.ClientRequest) (models.Client, error)
	DeleteClient(ctx context.Context, actor models.User, id string) (models.Client, error)
	SetClientStatus(ctx context.Context, actor models.User, id, status string) (models.Client, error)
	AcknowledgeClient(ctx context.Context, actor models.User, id string, acknowledged bool) (models.Client, error)
	AvailableSlots(ctx context.Context, date time.Time) ([]models.ScheduleSlot, error)
	DashboardStats(ctx context.Context, viewer models.User, period string) (models.DashboardStats, error)
	Rankings(ctx context.Context) ([]models.RankingEntry, error)
	UpcomingMeetings(ctx context.Context, viewer models.User) ([]models.Client, error)
	service.Notifier
}

type Server struct {
	log       *logrus.Entry
	app       App
	address   string
	version   string
	publicKey *rsa.PublicKey
}

func NewServer(log *logrus.Logger, app App, address, version string, publicKey *rsa.PublicKey) *Server {
	s := Server{
		log:       log.WithField("component", "rest"),
		app:       app,
		address:   address,
		version:   version,
		publicKey: publicKey,
	}
	return &s
}

func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(s.requestTimeout)
	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/login", s.loginHandler)
			r.Group(func(r chi.Router) {
				r.Use(s.jwtAuth)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", s.getUsersHandler)
					r.Post("/", s.createUserHandler)
					r.Get("/{id}", s.getUserHandler)
					r.Patch("/{id}", s.updateUserHandler)
				})
				r.Route("/clients", func(r chi.Router) {
					r.Get("/", s.getClientsHandler)
					r.Post("/", s.createClientHandler)
					r.Get("/{id}", s.getClientHandler)
					r.Patch("/{id}", s.updateClientHandler)
					r.Delete("/{id}", s.deleteClientHandler)
					r.Put("/{id}/status", s.setClientStatusHandler)
					r.Put("/{id}/acknowledge", s.acknowledgeClientHandler)
				})
				r.Get("/schedule/slots", s.slotsHandler)
				r.Get("/dashboard/stats", s.statsHandler)
				r.Get("/rankings", s.rankingsHandler)
				r.Get("/meetings/upcoming", s.upcomingMeetingsHandler)
			})
		})
	})

	server := &http.Server{Addr: s.address, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("err during server shutdown: %v", err)
		}
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
