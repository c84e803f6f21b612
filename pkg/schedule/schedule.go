package schedule

import (
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"
)

// Working hours, one bookable slot per hour (9h to 18h).
var WorkingHours = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00", "18:00"}

// AvailableSlots reports which of the fixed daily slots can still be booked
// on the given date. A slot is taken when a pending client meeting falls on
// the same calendar day and the same hour; minutes past the hour are
// ignored. Slots earlier than now are closed only when date is today, and
// carry no client name. Meetings that already failed, succeeded or are
// under evaluation free their slot up again.
func AvailableSlots(date time.Time, clients []models.Client, now time.Time) []models.ScheduleSlot {
	slots := make([]models.ScheduleSlot, 0, len(WorkingHours))
	for _, hour := range WorkingHours {
		t, _ := time.Parse("15:04", hour)
		slotTime := time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), 0, 0, 0, date.Location())
		slot := models.ScheduleSlot{Time: hour, Available: true}
		for _, client := range clients {
			if client.Status != models.StatusPending {
				continue
			}
			if sameDay(client.MeetingDate, date) && client.MeetingDate.Hour() == slotTime.Hour() {
				slot.Available = false
				slot.ClientName = client.OwnerName
				break
			}
		}
		if slot.Available && sameDay(date, now) && slotTime.Before(now) {
			slot.Available = false
		}
		slots = append(slots, slot)
	}
	return slots
}

// PastDate reports whether date falls on a calendar day strictly before
// today. Used to reject booking dates before any slot lookup.
func PastDate(date, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return date.Before(today)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
