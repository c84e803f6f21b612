package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/logger"
	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/fuego-digital/ProspectBoard/pkg/pgstore"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2023, 5, 10, 8, 0, 0, 0, time.UTC)

type fakeStore struct {
	users      map[string]models.User
	clients    map[string]models.Client
	lastFilter models.ClientsFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]models.User),
		clients: make(map[string]models.Client),
	}
}

func (f *fakeStore) GetUsers(_ context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	return users, nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, pgstore.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, pgstore.ErrUserNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id string, req models.UserRequest) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, pgstore.ErrUserNotFound
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.PasswordHash != nil {
		user.PasswordHash = *req.PasswordHash
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	f.users[id] = user
	return user, nil
}

func (f *fakeStore) GetClients(_ context.Context, filter models.ClientsFilter) ([]models.Client, error) {
	f.lastFilter = filter
	clients := make([]models.Client, 0, len(f.clients))
	for _, client := range f.clients {
		if filter.OwnerID != "" && client.UserID != filter.OwnerID {
			continue
		}
		if !filter.CreatedAfter.IsZero() && client.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func (f *fakeStore) GetClient(_ context.Context, id string) (models.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return models.Client{}, pgstore.ErrClientNotFound
	}
	return client, nil
}

func (f *fakeStore) CreateClient(_ context.Context, client models.Client) (models.Client, error) {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	client.CreatedAt = testNow
	client.UpdatedAt = testNow
	f.clients[client.ID] = client
	return client, nil
}

func (f *fakeStore) UpdateClient(_ context.Context, id string, req models.ClientRequest) (models.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return models.Client{}, pgstore.ErrClientNotFound
	}
	if req.MeetLink != nil {
		client.MeetLink = *req.MeetLink
	}
	if req.MeetingDate != nil {
		client.MeetingDate = *req.MeetingDate
	}
	if req.Status != nil {
		client.Status = *req.Status
	}
	if req.ClosedValue != nil {
		client.ClosedValue = *req.ClosedValue
	}
	f.clients[id] = client
	return client, nil
}

func (f *fakeStore) DeleteClient(_ context.Context, id string) (models.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return models.Client{}, pgstore.ErrClientNotFound
	}
	delete(f.clients, id)
	return client, nil
}

func (f *fakeStore) SetClientStatus(_ context.Context, id, status string) (models.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return models.Client{}, pgstore.ErrClientNotFound
	}
	client.Status = status
	f.clients[id] = client
	return client, nil
}

func (f *fakeStore) AcknowledgeClient(_ context.Context, id, adminID string, acknowledged bool) (models.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return models.Client{}, pgstore.ErrClientNotFound
	}
	client.AdminAcknowledged = acknowledged
	if acknowledged {
		client.AcknowledgedBy = &adminID
		now := testNow
		client.AcknowledgedAt = &now
	} else {
		client.AcknowledgedBy = nil
		client.AcknowledgedAt = nil
	}
	f.clients[id] = client
	return client, nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string, _ interface{}) error {
	n.messages = append(n.messages, message)
	return nil
}

var (
	admin      = models.User{ID: "admin-1", Name: "Alice", Role: models.RoleAdmin}
	prospector = models.User{ID: "pros-1", Name: "Pedro", Role: models.RoleProspector}
)

func newTestService(t *testing.T) (*ProspectService, *fakeStore, *recordingNotifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	store := newFakeStore()
	store.users[admin.ID] = admin
	store.users[prospector.ID] = prospector
	notifier := &recordingNotifier{}
	svc := NewProspectService(logger.NewLogger(), store, notifier, key)
	svc.now = func() time.Time { return testNow }
	return svc, store, notifier
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestLogin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{ID: "u1", Email: "pedro@fuego.digital", Role: models.RoleProspector, PasswordHash: string(hash)}
	store.users[user.ID] = user

	token, err := svc.Login(ctx, user.Email, "secret")
	require.NoError(t, err)

	jwt.TimeFunc = func() time.Time { return testNow }
	defer func() { jwt.TimeFunc = time.Now }()
	parsed, err := jwt.ParseWithClaims(token, &models.Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return &svc.privateKey.PublicKey, nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*models.Claims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleProspector, claims.Role)

	_, err = svc.Login(ctx, user.Email, "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@fuego.digital", "secret")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestCreateUserDefaultsToProspector(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, err := svc.CreateUser(context.Background(), models.UserRequest{
		Name:     strPtr("Nova"),
		Email:    strPtr("nova@fuego.digital"),
		Password: strPtr("secret"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProspector, user.Role)
	assert.NotEmpty(t, user.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")))
}

func TestUpdateUserRoleGate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateUser(ctx, prospector, admin.ID, models.UserRequest{Role: strPtr(models.RoleAdmin)})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateUser(ctx, admin, prospector.ID, models.UserRequest{Role: strPtr(models.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, models.RoleAdmin, store.users[prospector.ID].Role)
}

func TestCreateClientStampsOwnerAndDefaults(t *testing.T) {
	svc, _, notifier := newTestService(t)
	meeting := time.Date(2023, 5, 11, 14, 0, 0, 0, time.UTC)
	client, err := svc.CreateClient(context.Background(), prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		CompanyName: strPtr("Padaria Sol"),
		MeetingDate: timePtr(meeting),
	})
	require.NoError(t, err)
	assert.Equal(t, prospector.ID, client.UserID)
	assert.Equal(t, models.StatusPending, client.Status)
	assert.NotEmpty(t, client.ID)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Carlos")
}

func TestCreateClientRequiresMeetingDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateClient(context.Background(), prospector, models.ClientRequest{
		OwnerName: strPtr("Carlos"),
	})
	assert.ErrorIs(t, err, ErrMeetingDate)
}

func TestCreateClientSlotTaken(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	meeting := time.Date(2023, 5, 11, 14, 0, 0, 0, time.UTC)
	store.clients["c1"] = models.Client{
		ID: "c1", OwnerName: "Ana", Status: models.StatusPending,
		MeetingDate: meeting, UserID: admin.ID,
	}

	_, err := svc.CreateClient(ctx, prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		MeetingDate: timePtr(meeting.Add(30 * time.Minute)),
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The same hour opens back up once the earlier meeting is resolved.
	resolved := store.clients["c1"]
	resolved.Status = models.StatusSucceeded
	store.clients["c1"] = resolved
	_, err = svc.CreateClient(ctx, prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		MeetingDate: timePtr(meeting),
	})
	assert.NoError(t, err)
}

func TestCreateClientPastDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateClient(context.Background(), prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		MeetingDate: timePtr(testNow.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestCreateClientMeetLink(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	meeting := time.Date(2023, 5, 11, 14, 0, 0, 0, time.UTC)

	_, err := svc.CreateClient(ctx, prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		MeetingDate: timePtr(meeting),
		MeetLink:    strPtr("https://zoom.us/j/123"),
	})
	assert.ErrorIs(t, err, ErrInvalidMeetLink)

	client, err := svc.CreateClient(ctx, prospector, models.ClientRequest{
		OwnerName:   strPtr("Carlos"),
		MeetingDate: timePtr(meeting),
		MeetLink:    strPtr("meet.google.com/abc-defg-hij"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", client.MeetLink)
}

func TestUpdateClientReschedule(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.clients["c1"] = models.Client{
		ID: "c1", Status: models.StatusPending, UserID: prospector.ID,
		MeetingDate: time.Date(2023, 5, 11, 14, 0, 0, 0, time.UTC),
	}
	store.clients["c2"] = models.Client{
		ID: "c2", OwnerName: "Bia", Status: models.StatusPending, UserID: admin.ID,
		MeetingDate: time.Date(2023, 5, 11, 15, 0, 0, 0, time.UTC),
	}

	_, err := svc.UpdateClient(ctx, prospector, "c1", models.ClientRequest{
		MeetingDate: timePtr(time.Date(2023, 5, 11, 15, 0, 0, 0, time.UTC)),
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	updated, err := svc.UpdateClient(ctx, prospector, "c1", models.ClientRequest{
		MeetingDate: timePtr(time.Date(2023, 5, 11, 16, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, updated.MeetingDate.Hour())
}

func TestDeleteClientAuthz(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.clients["c1"] = models.Client{ID: "c1", UserID: admin.ID}

	_, err := svc.DeleteClient(ctx, prospector, "c1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.DeleteClient(ctx, admin, "c1")
	require.NoError(t, err)

	_, err = svc.DeleteClient(ctx, admin, "c1")
	assert.ErrorIs(t, err, pgstore.ErrClientNotFound)
}

func TestSetClientStatusValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.clients["c1"] = models.Client{ID: "c1", UserID: prospector.ID, Status: models.StatusPending}

	_, err := svc.SetClientStatus(ctx, prospector, "c1", "maybe")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	updated, err := svc.SetClientStatus(ctx, prospector, "c1", models.StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, updated.Status)
}

func TestAcknowledgeClientAdminOnly(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()
	store.clients["c1"] = models.Client{ID: "c1", OwnerName: "Carlos", UserID: prospector.ID, Status: models.StatusPending}

	_, err := svc.AcknowledgeClient(ctx, prospector, "c1", true)
	assert.ErrorIs(t, err, ErrForbidden)

	acked, err := svc.AcknowledgeClient(ctx, admin, "c1", true)
	require.NoError(t, err)
	assert.True(t, acked.AdminAcknowledged)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, admin.ID, *acked.AcknowledgedBy)
	assert.NotNil(t, acked.AcknowledgedAt)
	assert.NotEmpty(t, notifier.messages)

	cleared, err := svc.AcknowledgeClient(ctx, admin, "c1", false)
	require.NoError(t, err)
	assert.False(t, cleared.AdminAcknowledged)
	assert.Nil(t, cleared.AcknowledgedBy)
	assert.Nil(t, cleared.AcknowledgedAt)
}

func TestGetClientsScoping(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetClients(ctx, prospector, models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, prospector.ID, store.lastFilter.OwnerID)

	_, err = svc.GetClients(ctx, admin, models.PeriodAll)
	require.NoError(t, err)
	assert.Empty(t, store.lastFilter.OwnerID)

	_, err = svc.GetClients(ctx, admin, models.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -7), store.lastFilter.CreatedAfter)
}

func TestAvailableSlotsPastDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AvailableSlots(context.Background(), testNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestDashboardStats(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.clients["c1"] = models.Client{ID: "c1", UserID: prospector.ID, Status: models.StatusSucceeded, ClosedValue: 1000, CreatedAt: testNow}
	store.clients["c2"] = models.Client{ID: "c2", UserID: admin.ID, Status: models.StatusPending, ProposedValue: 500, MeetingDate: testNow.Add(time.Hour), CreatedAt: testNow}

	stats, err := svc.DashboardStats(context.Background(), prospector, models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stats.TotalClosed)
	assert.Equal(t, 0.0, stats.TotalPending)

	stats, err = svc.DashboardStats(context.Background(), admin, models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stats.TotalClosed)
	assert.Equal(t, 500.0, stats.TotalPending)
	assert.Equal(t, 1, stats.PendingMeetings)
}

func TestRankingsThroughService(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.clients["c1"] = models.Client{ID: "c1", UserID: prospector.ID, Status: models.StatusSucceeded, ClosedValue: 300}
	store.clients["c2"] = models.Client{ID: "c2", UserID: prospector.ID, Status: models.StatusPending}
	store.clients["c3"] = models.Client{ID: "c3", UserID: admin.ID, Status: models.StatusFailed}

	rankings, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, prospector.ID, rankings[0].User.ID)
	assert.Equal(t, 50.0, rankings[0].ConversionRate)
	assert.Equal(t, admin.ID, rankings[1].User.ID)
	assert.Equal(t, 0.0, rankings[1].ConversionRate)
}
