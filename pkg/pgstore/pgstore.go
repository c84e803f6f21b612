package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/metrics"
	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

const retries = 3

var ErrUserNotFound = fmt.Errorf("user not found")
var ErrClientNotFound = fmt.Errorf("client not found")

type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

func NewStore(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	assetDir := func() func(string) ([]string, error) {
		return func(path string) ([]string, error) {
			dirEntry, er := migrations.ReadDir(path)
			if er != nil {
				return nil, er
			}
			entries := make([]string, 0)
			for _, e := range dirEntry {
				entries = append(entries, e.Name())
			}

			return entries, nil
		}
	}()
	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}
	_, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	return err
}

func (s *Store) observe(method string, start time.Time, err error) {
	metrics.PgDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PgErrCount.WithLabelValues(method).Inc()
	}
}

func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	var err error
	defer func(start time.Time) { s.observe("GetUsers", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at DESC`); err != nil {
			continue
		}
		return users, nil
	}
	return nil, fmt.Errorf("err getting users: %w", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	query := `
SELECT * FROM users
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &user, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return user, nil
	}
	return models.User{}, fmt.Errorf("err getting user %s: %w", id, err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	query := `
SELECT * FROM users
WHERE email = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &user, query, email)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return user, nil
	}
	return models.User{}, fmt.Errorf("err getting user by email: %w", err)
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	var createdUser models.User
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	query := `
INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("CreateUser", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &createdUser, query,
			user.ID, user.Name, user.Email, user.PasswordHash, user.Role); err != nil {
			continue
		}
		return createdUser, nil
	}
	return models.User{}, fmt.Errorf("err creating user: %w", err)
}

func (s *Store) UpdateUser(ctx context.Context, id string, user models.UserRequest) (models.User, error) {
	var updatedUser models.User
	query := `
UPDATE users
SET name          = COALESCE($2, name),
    email         = COALESCE($3, email),
    password_hash = COALESCE($4, password_hash),
    role          = COALESCE($5, role),
    updated_at    = now()
WHERE id = $1
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("UpdateUser", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedUser, query, id, user.Name, user.Email, user.PasswordHash, user.Role)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return updatedUser, nil
	}
	return models.User{}, fmt.Errorf("err updating user %s: %w", id, err)
}

func (s *Store) GetClients(ctx context.Context, filter models.ClientsFilter) ([]models.Client, error) {
	var clients []models.Client
	query := `SELECT * FROM clients`
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at DESC`
	var err error
	defer func(start time.Time) { s.observe("GetClients", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &clients, query, args...); err != nil {
			continue
		}
		return clients, nil
	}
	return nil, fmt.Errorf("err getting clients: %w", err)
}

func (s *Store) GetClient(ctx context.Context, id string) (models.Client, error) {
	var client models.Client
	query := `
SELECT * FROM clients
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &client, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Client{}, ErrClientNotFound
		case err != nil:
			continue
		}
		return client, nil
	}
	return models.Client{}, fmt.Errorf("err getting client %s: %w", id, err)
}

func (s *Store) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	var createdClient models.Client
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	query := `
INSERT INTO clients (id, owner_name, company_name, niche, phone, meet_link,
                     meeting_date, status, proposed_value, closed_value, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("CreateClient", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &createdClient, query,
			client.ID, client.OwnerName, client.CompanyName, client.Niche, client.Phone, client.MeetLink,
			client.MeetingDate, client.Status, client.ProposedValue, client.ClosedValue, client.UserID); err != nil {
			continue
		}
		return createdClient, nil
	}
	return models.Client{}, fmt.Errorf("err creating client: %w", err)
}

func (s *Store) UpdateClient(ctx context.Context, id string, client models.ClientRequest) (models.Client, error) {
	var updatedClient models.Client
	query := `
UPDATE clients
SET owner_name     = COALESCE($2, owner_name),
    company_name   = COALESCE($3, company_name),
    niche          = COALESCE($4, niche),
    phone          = COALESCE($5, phone),
    meet_link      = COALESCE($6, meet_link),
    meeting_date   = COALESCE($7, meeting_date),
    status         = COALESCE($8, status),
    proposed_value = COALESCE($9, proposed_value),
    closed_value   = COALESCE($10, closed_value),
    updated_at     = now()
WHERE id = $1
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("UpdateClient", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedClient, query, id,
			client.OwnerName, client.CompanyName, client.Niche, client.Phone, client.MeetLink,
			client.MeetingDate, client.Status, client.ProposedValue, client.ClosedValue)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Client{}, ErrClientNotFound
		case err != nil:
			continue
		}
		return updatedClient, nil
	}
	return models.Client{}, fmt.Errorf("err updating client %s: %w", id, err)
}

func (s *Store) DeleteClient(ctx context.Context, id string) (models.Client, error) {
	var deletedClient models.Client
	query := `
DELETE FROM clients
WHERE id = $1
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("DeleteClient", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &deletedClient, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Client{}, ErrClientNotFound
		case err != nil:
			continue
		}
		return deletedClient, nil
	}
	return models.Client{}, fmt.Errorf("err deleting client %s: %w", id, err)
}

func (s *Store) SetClientStatus(ctx context.Context, id, status string) (models.Client, error) {
	var updatedClient models.Client
	query := `
UPDATE clients
SET status     = $2,
    updated_at = now()
WHERE id = $1
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("SetClientStatus", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedClient, query, id, status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Client{}, ErrClientNotFound
		case err != nil:
			continue
		}
		return updatedClient, nil
	}
	return models.Client{}, fmt.Errorf("err updating client %s status: %w", id, err)
}

// AcknowledgeClient toggles the admin confirmation. Clearing it also
// clears who confirmed and when.
func (s *Store) AcknowledgeClient(ctx context.Context, id, adminID string, acknowledged bool) (models.Client, error) {
	var updatedClient models.Client
	query := `
UPDATE clients
SET admin_acknowledged = $2,
    acknowledged_by    = CASE WHEN $2 THEN $3 ELSE NULL END,
    acknowledged_at    = CASE WHEN $2 THEN now() ELSE NULL END,
    updated_at         = now()
WHERE id = $1
RETURNING *;`
	var err error
	defer func(start time.Time) { s.observe("AcknowledgeClient", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedClient, query, id, acknowledged, adminID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Client{}, ErrClientNotFound
		case err != nil:
			continue
		}
		return updatedClient, nil
	}
	return models.Client{}, fmt.Errorf("err acknowledging client %s: %w", id, err)
}

// PendingReminders lists pending meetings starting before the given
// deadline whose reminder was not sent yet.
func (s *Store) PendingReminders(ctx context.Context, until time.Time) ([]models.Client, error) {
	var clients []models.Client
	query := `
SELECT * FROM clients
WHERE status = 'pending'
  AND reminder_sent = FALSE
  AND meeting_date BETWEEN now() AND $1
ORDER BY meeting_date;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &clients, query, until); err != nil {
			continue
		}
		return clients, nil
	}
	return nil, fmt.Errorf("err getting pending reminders: %w", err)
}

func (s *Store) SwitchReminderStatus(ctx context.Context, id string) error {
	query := `
UPDATE clients
SET reminder_sent = TRUE
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		if _, err = s.db.ExecContext(ctx, query, id); err != nil {
			continue
		}
		return nil
	}
	return fmt.Errorf("err switching reminder status for client %s: %w", id, err)
}

func (s *Store) ResetTables(ctx context.Context, tables []string) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+strings.Join(tables, `, `)+` CASCADE`)
	return err
}
