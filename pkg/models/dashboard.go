package models

type ScheduleSlot struct {
	Time       string `json:"time"`
	Available  bool   `json:"available"`
	ClientName string `json:"clientName,omitempty"`
}

type DashboardStats struct {
	TotalClosed         float64 `json:"totalClosed"`
	TotalPending        float64 `json:"totalPending"`
	FailedMeetings      int     `json:"failedMeetings"`
	ClientsInEvaluation int     `json:"clientsInEvaluation"`
	PendingMeetings     int     `json:"pendingMeetings"`
}

type RankingEntry struct {
	User               User    `json:"user"`
	ClientsCount       int     `json:"clientsCount"`
	TotalClosed        float64 `json:"totalClosed"`
	SuccessfulMeetings int     `json:"successfulMeetings"`
	ConversionRate     float64 `json:"conversionRate"`
}
