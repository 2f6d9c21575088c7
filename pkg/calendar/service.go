package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	messagedomain "asist-backend/internal/message/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = messagedomain.TokenUpdateFunc

// EventDuration is the fixed length of auto-created events
const EventDuration = time.Hour

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Calendar] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (s *Service) getCalendarService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*calendar.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %v", err)
	}

	return srv, nil
}

// CreateEvent creates a 1-hour event on the user's primary calendar and
// returns the provider event id.
func (s *Service) CreateEvent(ctx context.Context, accessToken, refreshToken, title string, startTime time.Time, onTokenRefresh TokenUpdateFunc) (string, error) {
	srv, err := s.getCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return "", err
	}

	end := startTime.Add(EventDuration)
	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: startTime.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := srv.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create calendar event: %v", err)
	}

	return created.Id, nil
}

// UpdateEvent changes the title and start time of an existing event,
// keeping the fixed 1-hour duration.
func (s *Service) UpdateEvent(ctx context.Context, accessToken, refreshToken, eventID, title string, startTime time.Time, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.getCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	end := startTime.Add(EventDuration)
	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: startTime.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	if _, err := srv.Events.Patch("primary", eventID, event).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to update calendar event: %v", err)
	}

	return nil
}

// DeleteEvent removes an event from the user's primary calendar
func (s *Service) DeleteEvent(ctx context.Context, accessToken, refreshToken, eventID string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.getCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete("primary", eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete calendar event: %v", err)
	}

	return nil
}

// UpcomingEvent is a trimmed view of a calendar event for the dashboard
type UpcomingEvent struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
}

// ListUpcoming returns the next few events on the user's primary calendar
func (s *Service) ListUpcoming(ctx context.Context, accessToken, refreshToken string, max int64, onTokenRefresh TokenUpdateFunc) ([]UpcomingEvent, error) {
	srv, err := s.getCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	if max <= 0 {
		max = 5
	}

	resp, err := srv.Events.List("primary").
		TimeMin(time.Now().Format(time.RFC3339)).
		MaxResults(max).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list calendar events: %v", err)
	}

	events := make([]UpcomingEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		start := ""
		if item.Start != nil {
			start = item.Start.DateTime
			if start == "" {
				start = item.Start.Date
			}
		}
		events = append(events, UpcomingEvent{
			ID:      item.Id,
			Summary: item.Summary,
			Start:   start,
		})
	}

	return events, nil
}
