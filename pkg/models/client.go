package models

import "time"

// Client statuses. Exactly one holds at a time; only pending meetings
// occupy schedule slots.
const (
	StatusPending    = `pending`
	StatusFailed     = `failed`
	StatusSucceeded  = `succeeded`
	StatusEvaluating = `evaluating`
)

// ClientsFilter narrows client listings. Zero values mean no constraint.
type ClientsFilter struct {
	OwnerID      string
	CreatedAfter time.Time
}

type ClientRequest struct {
	ID            *string    `json:"id" db:"id"`
	OwnerName     *string    `json:"ownerName" db:"owner_name"`
	CompanyName   *string    `json:"companyName" db:"company_name"`
	Niche         *string    `json:"niche" db:"niche"`
	Phone         *string    `json:"phone" db:"phone"`
	MeetLink      *string    `json:"meetLink" db:"meet_link"`
	MeetingDate   *time.Time `json:"meetingDate" db:"meeting_date"`
	Status        *string    `json:"status" db:"status"`
	ProposedValue *float64   `json:"proposedValue" db:"proposed_value"`
	ClosedValue   *float64   `json:"closedValue" db:"closed_value"`
	UserID        *string    `json:"userID" db:"user_id"`
}

type Client struct {
	ID                string     `json:"id" db:"id"`
	OwnerName         string     `json:"ownerName" db:"owner_name"`
	CompanyName       string     `json:"companyName" db:"company_name"`
	Niche             string     `json:"niche" db:"niche"`
	Phone             string     `json:"phone" db:"phone"`
	MeetLink          string     `json:"meetLink" db:"meet_link"`
	MeetingDate       time.Time  `json:"meetingDate" db:"meeting_date"`
	Status            string     `json:"status" db:"status"`
	ProposedValue     float64    `json:"proposedValue" db:"proposed_value"`
	ClosedValue       float64    `json:"closedValue" db:"closed_value"`
	UserID            string     `json:"userID" db:"user_id"`
	AdminAcknowledged bool       `json:"adminAcknowledged" db:"admin_acknowledged"`
	AcknowledgedBy    *string    `json:"acknowledgedBy" db:"acknowledged_by"`
	AcknowledgedAt    *time.Time `json:"acknowledgedAt" db:"acknowledged_at"`
	ReminderSent      bool       `json:"reminderSent" db:"reminder_sent"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}
