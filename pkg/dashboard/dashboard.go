package dashboard

import (
	"sort"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"
)

// Stats reduces an already filtered client list into the dashboard
// counters. Pending meetings count only those still ahead of now.
func Stats(clients []models.Client, now time.Time) models.DashboardStats {
	var stats models.DashboardStats
	for _, client := range clients {
		switch client.Status {
		case models.StatusSucceeded:
			stats.TotalClosed += client.ClosedValue
		case models.StatusPending:
			stats.TotalPending += client.ProposedValue
			if !client.MeetingDate.Before(now) {
				stats.PendingMeetings++
			}
		case models.StatusFailed:
			stats.FailedMeetings++
		case models.StatusEvaluating:
			stats.ClientsInEvaluation++
		}
	}
	return stats
}

// Rankings groups clients by owner and orders owners by closed revenue.
// Owners without clients never appear, which also keeps the conversion
// rate away from a zero division. Clients whose owner is missing from
// the user list are skipped. Equal revenue is broken by user id so the
// order stays deterministic.
func Rankings(clients []models.Client, users []models.User) []models.RankingEntry {
	usersByID := make(map[string]models.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}
	grouped := make(map[string]*models.RankingEntry)
	for _, client := range clients {
		user, ok := usersByID[client.UserID]
		if !ok {
			continue
		}
		entry, ok := grouped[client.UserID]
		if !ok {
			entry = &models.RankingEntry{User: user}
			grouped[client.UserID] = entry
		}
		entry.ClientsCount++
		if client.Status == models.StatusSucceeded {
			entry.TotalClosed += client.ClosedValue
			entry.SuccessfulMeetings++
		}
	}
	rankings := make([]models.RankingEntry, 0, len(grouped))
	for _, entry := range grouped {
		if entry.ClientsCount > 0 {
			entry.ConversionRate = float64(entry.SuccessfulMeetings) / float64(entry.ClientsCount) * 100
		}
		rankings = append(rankings, *entry)
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].TotalClosed != rankings[j].TotalClosed {
			return rankings[i].TotalClosed > rankings[j].TotalClosed
		}
		return rankings[i].User.ID < rankings[j].User.ID
	})
	return rankings
}

// UpcomingMeetings returns pending clients ordered by meeting date,
// soonest first.
func UpcomingMeetings(clients []models.Client) []models.Client {
	upcoming := make([]models.Client, 0)
	for _, client := range clients {
		if client.Status == models.StatusPending {
			upcoming = append(upcoming, client)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].MeetingDate.Before(upcoming[j].MeetingDate)
	})
	return upcoming
}

// PeriodStart resolves a dashboard period filter to the lower bound used
// against created_at. The zero time means no bound.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case models.PeriodToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case models.PeriodThreeDays:
		return now.AddDate(0, 0, -3)
	case models.PeriodWeek:
		return now.AddDate(0, 0, -7)
	case models.PeriodFifteenDays:
		return now.AddDate(0, 0, -15)
	case models.PeriodMonth:
		return now.AddDate(0, -1, 0)
	case models.PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
