package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/sirupsen/logrus"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const meetingDuration = time.Hour

// Calendar mirrors booked meetings into the agency's Google Calendar.
type Calendar struct {
	log        *logrus.Entry
	srv        *calendar.Service
	calendarID string
}

func New(ctx context.Context, log *logrus.Logger, credentialsFile, calendarID string) (*Calendar, error) {
	srv, err := calendarService(ctx, credentialsFile)
	if err != nil {
		return nil, err
	}
	return &Calendar{
		log:        log.WithField("component", "calendar"),
		srv:        srv,
		calendarID: calendarID,
	}, nil
}

// Export inserts a one hour event for the client's meeting and returns
// the created event id.
func (c *Calendar) Export(client models.Client) (string, error) {
	event := &calendar.Event{
		Summary:     fmt.Sprintf("Meeting: %s (%s)", client.OwnerName, client.CompanyName),
		Description: fmt.Sprintf("Niche: %s\nPhone: %s\nMeet: %s", client.Niche, client.Phone, client.MeetLink),
		Start:       &calendar.EventDateTime{DateTime: client.MeetingDate.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: client.MeetingDate.Add(meetingDuration).Format(time.RFC3339)},
	}
	created, err := c.srv.Events.Insert(c.calendarID, event).Do()
	if err != nil {
		return "", fmt.Errorf("err inserting calendar event: %w", err)
	}
	c.log.Debugf("exported meeting %s as event %s", client.ID, created.Id)
	return created.Id, nil
}

// Events lists the next ten upcoming events.
func (c *Calendar) Events() ([]models.Event, error) {
	t := time.Now().Format(time.RFC3339)
	events, err := c.srv.Events.List(c.calendarID).ShowDeleted(false).
		SingleEvents(true).TimeMin(t).MaxResults(10).OrderBy("startTime").Do()
	if err != nil {
		return nil, fmt.Errorf("err listing calendar events: %w", err)
	}

	if len(events.Items) == 0 {
		return nil, nil
	}

	result := make([]models.Event, 0, len(events.Items))
	for _, item := range events.Items {
		event := models.Event{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Start:       item.Start.DateTime,
			End:         item.End.DateTime,
			Created:     item.Created,
			Updated:     item.Updated,
			Status:      item.Status,
		}
		result = append(result, event)
	}

	return result, nil
}

func calendarService(ctx context.Context, credentialsFile string) (*calendar.Service, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	// If modifying these scopes, delete your previously saved token.json.
	config, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	client, err := getClient(config)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar client: %w", err)
	}
	return srv, nil
}

// Retrieve a token, saves the token, then returns the generated client.
func getClient(config *oauth2.Config) (*http.Client, error) {
	// The file token.json stores the user's access and refresh tokens, and is
	// created automatically when the authorization flow completes for the first
	// time.
	tokFile := "token.json"
	tok, err := tokenFromFile(tokFile)
	if err != nil {
		tok, err = getTokenFromWeb(config)
		if err != nil {
			return nil, err
		}
		if err = saveToken(tokFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(context.Background(), tok), nil
}

// Request a token from the web, then returns the retrieved token.
func getTokenFromWeb(config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(context.TODO(), authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// Retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Saves a token to a file path.
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
