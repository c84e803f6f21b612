package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/authz"
	"github.com/fuego-digital/ProspectBoard/pkg/dashboard"
	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/fuego-digital/ProspectBoard/pkg/schedule"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL       = 24 * time.Hour
	meetLinkDomain = "meet.google.com"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrMeetingDate     = errors.New("meeting date is required")
	ErrInvalidMeetLink = errors.New("invalid google meet link")
	ErrUnknownStatus   = errors.New("unknown client status")
	ErrSlotTaken       = errors.New("slot already taken")
	ErrPastDate        = errors.New("date already passed")
)

type Notifier interface {
	Notify(ctx context.Context, message string, user interface{}) error
}

// Exporter mirrors a booked meeting into an external calendar.
type Exporter interface {
	Export(client models.Client) (string, error)
}

type Store interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateUser(ctx context.Context, id string, user models.UserRequest) (models.User, error)
	GetClients(ctx context.Context, filter models.ClientsFilter) ([]models.Client, error)
	GetClient(ctx context.Context, id string) (models.Client, error)
	CreateClient(ctx context.Context, client models.Client) (models.Client, error)
	UpdateClient(ctx context.Context, id string, client models.ClientRequest) (models.Client, error)
	DeleteClient(ctx context.Context, id string) (models.Client, error)
	SetClientStatus(ctx context.Context, id, status string) (models.Client, error)
	AcknowledgeClient(ctx context.Context, id, adminID string, acknowledged bool) (models.Client, error)
}

type ProspectService struct {
	log        *logrus.Entry
	store      Store
	notifier   Notifier
	privateKey *rsa.PrivateKey
	exporter   Exporter
	now        func() time.Time
}

func NewProspectService(log *logrus.Logger, store Store, notifier Notifier, privateKey *rsa.PrivateKey) *ProspectService {
	s := ProspectService{
		log:        log.WithField("component", "service"),
		store:      store,
		notifier:   notifier,
		privateKey: privateKey,
		now:        time.Now,
	}
	return &s
}

// WithExporter enables calendar export of new bookings. Export failures
// never fail the booking.
func (s *ProspectService) WithExporter(exporter Exporter) *ProspectService {
	s.exporter = exporter
	return s
}

func (s *ProspectService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
		UserID: user.ID,
		Role:   user.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("err signing token: %w", err)
	}
	return token, nil
}

func (s *ProspectService) GetUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("err getting users from store: %w", err)
	}
	return users, nil
}

func (s *ProspectService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.store.GetUser(ctx, id)
}

// CreateUser provisions a user. New users land on the lowest privilege
// role unless the request says otherwise.
func (s *ProspectService) CreateUser(ctx context.Context, user models.UserRequest) (models.User, error) {
	newUser := models.User{Role: models.RoleProspector}
	if user.Name != nil {
		newUser.Name = *user.Name
	}
	if user.Email != nil {
		newUser.Email = *user.Email
	}
	if user.Role != nil {
		newUser.Role = *user.Role
	}
	if user.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*user.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("err hashing password: %w", err)
		}
		newUser.PasswordHash = string(hash)
	}
	createdUser, err := s.store.CreateUser(ctx, newUser)
	if err != nil {
		return models.User{}, fmt.Errorf("err creating user: %w", err)
	}
	if err = s.notifier.Notify(ctx, "user created", createdUser.ID); err != nil {
		s.log.Errorf("err notifying user: %v", err)
	}
	return createdUser, nil
}

func (s *ProspectService) UpdateUser(ctx context.Context, actor models.User, id string, user models.UserRequest) (models.User, error) {
	if decision := authz.Can(actor, authz.ActionManageUsers, nil); !decision.Allowed {
		return models.User{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	if user.Role != nil {
		if decision := authz.Can(actor, authz.ActionChangeRoles, nil); !decision.Allowed {
			return models.User{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
		}
	}
	if user.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*user.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("err hashing password: %w", err)
		}
		hashed := string(hash)
		user.PasswordHash = &hashed
	}
	return s.store.UpdateUser(ctx, id, user)
}

// GetClients lists clients visible to the viewer. Prospectors see only
// their own records; the period narrows by creation date.
func (s *ProspectService) GetClients(ctx context.Context, viewer models.User, period string) ([]models.Client, error) {
	filter := models.ClientsFilter{CreatedAfter: dashboard.PeriodStart(period, s.now())}
	if decision := authz.Can(viewer, authz.ActionViewAllClients, nil); !decision.Allowed {
		filter.OwnerID = viewer.ID
	}
	clients, err := s.store.GetClients(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("err getting clients from store: %w", err)
	}
	return clients, nil
}

func (s *ProspectService) GetClient(ctx context.Context, id string) (models.Client, error) {
	return s.store.GetClient(ctx, id)
}

func (s *ProspectService) CreateClient(ctx context.Context, creator models.User, client models.ClientRequest) (models.Client, error) {
	newClient := models.Client{
		Status: models.StatusPending,
		UserID: creator.ID,
	}
	if client.OwnerName != nil {
		newClient.OwnerName = *client.OwnerName
	}
	if client.CompanyName != nil {
		newClient.CompanyName = *client.CompanyName
	}
	if client.Niche != nil {
		newClient.Niche = *client.Niche
	}
	if client.Phone != nil {
		newClient.Phone = *client.Phone
	}
	if client.Status != nil {
		newClient.Status = *client.Status
	}
	if client.ProposedValue != nil {
		newClient.ProposedValue = *client.ProposedValue
	}
	if client.ClosedValue != nil {
		newClient.ClosedValue = *client.ClosedValue
	}
	if client.MeetingDate == nil {
		return models.Client{}, ErrMeetingDate
	}
	newClient.MeetingDate = *client.MeetingDate
	if !validStatus(newClient.Status) {
		return models.Client{}, ErrUnknownStatus
	}
	if client.MeetLink != nil && *client.MeetLink != "" {
		link, err := normalizeMeetLink(*client.MeetLink)
		if err != nil {
			return models.Client{}, err
		}
		newClient.MeetLink = link
	}
	if newClient.Status == models.StatusPending {
		if err := s.checkSlot(ctx, newClient.MeetingDate, ""); err != nil {
			return models.Client{}, err
		}
	}
	createdClient, err := s.store.CreateClient(ctx, newClient)
	if err != nil {
		return models.Client{}, fmt.Errorf("err creating client: %w", err)
	}
	msg := fmt.Sprintf("meeting booked with %s (%s) at %s",
		createdClient.OwnerName, createdClient.CompanyName, createdClient.MeetingDate.Format(time.RFC3339))
	if err = s.notifier.Notify(ctx, msg, createdClient.UserID); err != nil {
		s.log.Errorf("err notifying user: %v", err)
	}
	if s.exporter != nil {
		if _, err = s.exporter.Export(createdClient); err != nil {
			s.log.Errorf("err exporting meeting to calendar: %v", err)
		}
	}
	return createdClient, nil
}

func (s *ProspectService) UpdateClient(ctx context.Context, actor models.User, id string, client models.ClientRequest) (models.Client, error) {
	existing, err := s.store.GetClient(ctx, id)
	if err != nil {
		return models.Client{}, err
	}
	if decision := authz.Can(actor, authz.ActionEditClient, &existing); !decision.Allowed {
		return models.Client{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	if client.Status != nil && !validStatus(*client.Status) {
		return models.Client{}, ErrUnknownStatus
	}
	if client.MeetLink != nil && *client.MeetLink != "" {
		link, er := normalizeMeetLink(*client.MeetLink)
		if er != nil {
			return models.Client{}, er
		}
		client.MeetLink = &link
	}
	if client.MeetingDate != nil && !client.MeetingDate.Equal(existing.MeetingDate) {
		if er := s.checkSlot(ctx, *client.MeetingDate, id); er != nil {
			return models.Client{}, er
		}
	}
	return s.store.UpdateClient(ctx, id, client)
}

func (s *ProspectService) DeleteClient(ctx context.Context, actor models.User, id string) (models.Client, error) {
	existing, err := s.store.GetClient(ctx, id)
	if err != nil {
		return models.Client{}, err
	}
	if decision := authz.Can(actor, authz.ActionDeleteClient, &existing); !decision.Allowed {
		return models.Client{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return s.store.DeleteClient(ctx, id)
}

func (s *ProspectService) SetClientStatus(ctx context.Context, actor models.User, id, status string) (models.Client, error) {
	if !validStatus(status) {
		return models.Client{}, ErrUnknownStatus
	}
	existing, err := s.store.GetClient(ctx, id)
	if err != nil {
		return models.Client{}, err
	}
	if decision := authz.Can(actor, authz.ActionEditClient, &existing); !decision.Allowed {
		return models.Client{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return s.store.SetClientStatus(ctx, id, status)
}

func (s *ProspectService) AcknowledgeClient(ctx context.Context, actor models.User, id string, acknowledged bool) (models.Client, error) {
	if decision := authz.Can(actor, authz.ActionAcknowledgeMeeting, nil); !decision.Allowed {
		return models.Client{}, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	client, err := s.store.AcknowledgeClient(ctx, id, actor.ID, acknowledged)
	if err != nil {
		return models.Client{}, err
	}
	if acknowledged {
		msg := fmt.Sprintf("meeting with %s confirmed by %s", client.OwnerName, actor.Name)
		if err = s.notifier.Notify(ctx, msg, client.UserID); err != nil {
			s.log.Errorf("err notifying user: %v", err)
		}
	}
	return client, nil
}

// AvailableSlots computes the bookable hours for a date. Days before
// today are rejected outright.
func (s *ProspectService) AvailableSlots(ctx context.Context, date time.Time) ([]models.ScheduleSlot, error) {
	if schedule.PastDate(date, s.now()) {
		return nil, ErrPastDate
	}
	clients, err := s.store.GetClients(ctx, models.ClientsFilter{})
	if err != nil {
		return nil, fmt.Errorf("err getting clients from store: %w", err)
	}
	return schedule.AvailableSlots(date, clients, s.now()), nil
}

func (s *ProspectService) DashboardStats(ctx context.Context, viewer models.User, period string) (models.DashboardStats, error) {
	clients, err := s.GetClients(ctx, viewer, period)
	if err != nil {
		return models.DashboardStats{}, err
	}
	return dashboard.Stats(clients, s.now()), nil
}

// Rankings always covers the whole client base, regardless of the
// dashboard period.
func (s *ProspectService) Rankings(ctx context.Context) ([]models.RankingEntry, error) {
	clients, err := s.store.GetClients(ctx, models.ClientsFilter{})
	if err != nil {
		return nil, fmt.Errorf("err getting clients from store: %w", err)
	}
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("err getting users from store: %w", err)
	}
	return dashboard.Rankings(clients, users), nil
}

func (s *ProspectService) UpcomingMeetings(ctx context.Context, viewer models.User) ([]models.Client, error) {
	clients, err := s.GetClients(ctx, viewer, models.PeriodAll)
	if err != nil {
		return nil, err
	}
	return dashboard.UpcomingMeetings(clients), nil
}

func (s *ProspectService) Notify(ctx context.Context, message string, user interface{}) error {
	return s.notifier.Notify(ctx, message, user)
}

// checkSlot rejects a booking when the requested hour is already behind
// us or another pending meeting holds the same day and hour. excludeID
// skips the record being rescheduled.
func (s *ProspectService) checkSlot(ctx context.Context, date time.Time, excludeID string) error {
	if date.Before(s.now()) {
		return ErrPastDate
	}
	clients, err := s.store.GetClients(ctx, models.ClientsFilter{})
	if err != nil {
		return fmt.Errorf("err getting clients from store: %w", err)
	}
	roster := make([]models.Client, 0, len(clients))
	for _, client := range clients {
		if client.ID != excludeID {
			roster = append(roster, client)
		}
	}
	hour := fmt.Sprintf("%02d:00", date.Hour())
	for _, slot := range schedule.AvailableSlots(date, roster, s.now()) {
		if slot.Time == hour && !slot.Available {
			return ErrSlotTaken
		}
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case models.StatusPending, models.StatusFailed, models.StatusSucceeded, models.StatusEvaluating:
		return true
	}
	return false
}

// normalizeMeetLink defaults the scheme to https and requires the host
// to contain the Google Meet domain.
func normalizeMeetLink(link string) (string, error) {
	normalized := strings.TrimSpace(link)
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", ErrInvalidMeetLink
	}
	if !strings.Contains(u.Hostname(), meetLinkDomain) {
		return "", ErrInvalidMeetLink
	}
	return normalized, nil
}
