package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	authrepo "asist-backend/internal/auth/repository"
	messagedelivery "asist-backend/internal/message/delivery"
	messagedomain "asist-backend/internal/message/domain"
	reminderrepo "asist-backend/internal/reminder/repository"
	syncdelivery "asist-backend/internal/sync/delivery"
	"asist-backend/internal/sync/usecase"
	"asist-backend/pkg/calendar"
	"asist-backend/pkg/gmail"
	"asist-backend/pkg/imap"

	"golang.org/x/oauth2"
)

// credentialProviderAdapter resolves provider credentials from the user
// store. Resolution happens fresh on every run so token refreshes written
// by a previous run are always picked up.
type credentialProviderAdapter struct {
	userRepo authrepo.UserRepository
}

func NewCredentialProvider(userRepo authrepo.UserRepository) usecase.CredentialProvider {
	return &credentialProviderAdapter{userRepo: userRepo}
}

func (a *credentialProviderAdapter) Resolve(userID string) (*usecase.Credentials, error) {
	user, err := a.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	creds := &usecase.Credentials{
		UserID:       user.ID,
		Provider:     user.Provider,
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		IMAPServer:   user.IMAPServer,
		IMAPUsername: user.IMAPUsername,
		IMAPPassword: user.IMAPPassword,
	}
	if user.UseOwnAPIKey {
		creds.AIAPIKey = user.AIAPIKey
	}

	creds.OnTokenRefresh = func(token *oauth2.Token) error {
		return a.userRepo.UpdateGoogleTokens(user.ID, token.AccessToken, token.RefreshToken)
	}

	return creds, nil
}

// mailProviderAdapter routes mail calls to the Gmail or IMAP service
// depending on how the user's account is connected
type mailProviderAdapter struct {
	gmailService *gmail.Service
	imapService  *imap.Service
}

func NewMailProvider(gmailService *gmail.Service, imapService *imap.Service) usecase.MailProvider {
	return &mailProviderAdapter{
		gmailService: gmailService,
		imapService:  imapService,
	}
}

func (a *mailProviderAdapter) ListUnread(ctx context.Context, creds *usecase.Credentials, max int) ([]string, error) {
	if creds.Provider == "imap" {
		return a.imapService.ListUnread(ctx, creds.IMAPServer, creds.IMAPUsername, creds.IMAPPassword, max)
	}
	return a.gmailService.ListUnread(ctx, creds.AccessToken, creds.RefreshToken, int64(max), creds.OnTokenRefresh)
}

func (a *mailProviderAdapter) GetMessage(ctx context.Context, creds *usecase.Credentials, externalID string) (*messagedomain.MessageDetail, error) {
	if creds.Provider == "imap" {
		return a.imapService.GetMessage(ctx, creds.IMAPServer, creds.IMAPUsername, creds.IMAPPassword, externalID)
	}
	return a.gmailService.GetMessage(ctx, creds.AccessToken, creds.RefreshToken, externalID, creds.OnTokenRefresh)
}

// calendarProviderAdapter creates events through the Google Calendar
// service. IMAP-only accounts have no calendar; event creation fails there
// and the orchestrator treats it as any other best-effort miss.
type calendarProviderAdapter struct {
	calendarService *calendar.Service
}

func NewCalendarProvider(calendarService *calendar.Service) usecase.CalendarProvider {
	return &calendarProviderAdapter{calendarService: calendarService}
}

func (a *calendarProviderAdapter) CreateEvent(ctx context.Context, creds *usecase.Credentials, title string, start time.Time) (string, error) {
	if creds.Provider == "imap" {
		return "", fmt.Errorf("calendar is not available for IMAP accounts")
	}
	return a.calendarService.CreateEvent(ctx, creds.AccessToken, creds.RefreshToken, title, start, creds.OnTokenRefresh)
}

// eventRemoverAdapter deletes a message's auto-created calendar event when
// the user ignores the message
type eventRemoverAdapter struct {
	credProvider    usecase.CredentialProvider
	calendarService *calendar.Service
}

func NewEventRemover(credProvider usecase.CredentialProvider, calendarService *calendar.Service) messagedelivery.EventRemover {
	return &eventRemoverAdapter{
		credProvider:    credProvider,
		calendarService: calendarService,
	}
}

func (a *eventRemoverAdapter) RemoveEvent(ctx context.Context, userID, eventID string) error {
	creds, err := a.credProvider.Resolve(userID)
	if err != nil {
		return err
	}
	if creds == nil || creds.AccessToken == "" {
		return fmt.Errorf("no connected calendar account")
	}
	return a.calendarService.DeleteEvent(ctx, creds.AccessToken, creds.RefreshToken, eventID, creds.OnTokenRefresh)
}

// reminderRetractorAdapter deletes the reminders derived from a message
// when the user ignores it
type reminderRetractorAdapter struct {
	reminderRepo reminderrepo.ReminderRepository
}

func NewReminderRetractor(reminderRepo reminderrepo.ReminderRepository) messagedelivery.ReminderRetractor {
	return &reminderRetractorAdapter{reminderRepo: reminderRepo}
}

func (a *reminderRetractorAdapter) RetractForMessage(userID, messageID string) error {
	reminders, err := a.reminderRepo.FindByReferenceID(messageID)
	if err != nil {
		return err
	}
	for _, reminder := range reminders {
		if reminder.UserID != userID {
			continue
		}
		if err := a.reminderRepo.Delete(userID, reminder.ID); err != nil {
			return err
		}
	}
	return nil
}

// accountCheckerAdapter probes the user's stored credentials against the
// provider the account is connected through
type accountCheckerAdapter struct {
	credProvider usecase.CredentialProvider
	gmailService *gmail.Service
	imapService  *imap.Service
}

func NewAccountChecker(credProvider usecase.CredentialProvider, gmailService *gmail.Service, imapService *imap.Service) syncdelivery.AccountChecker {
	return &accountCheckerAdapter{
		credProvider: credProvider,
		gmailService: gmailService,
		imapService:  imapService,
	}
}

func (a *accountCheckerAdapter) CheckAccount(ctx context.Context, userID string) (string, error) {
	creds, err := a.credProvider.Resolve(userID)
	if err != nil {
		return "", err
	}
	if creds == nil || !creds.Connected() {
		return "", fmt.Errorf("no connected mail account")
	}
	if creds.Provider == "imap" {
		if err := a.imapService.ValidateAccount(ctx, creds.IMAPServer, creds.IMAPUsername, creds.IMAPPassword); err != nil {
			return "", err
		}
		return "imap", nil
	}
	if err := a.gmailService.ValidateToken(ctx, creds.AccessToken, creds.RefreshToken, creds.OnTokenRefresh); err != nil {
		return "", err
	}
	return "google", nil
}

// mailboxWatcher registers a user's Gmail inbox on the Pub/Sub watch topic
type mailboxWatcher struct {
	credProvider usecase.CredentialProvider
	gmailService *gmail.Service
	topicName    string // fully qualified: projects/<project>/topics/<topic>
}

func NewMailboxWatcher(credProvider usecase.CredentialProvider, gmailService *gmail.Service, projectID, topic string) syncdelivery.MailboxWatcher {
	// Accept either a short topic name or a full resource name
	topicName := topic
	if !strings.Contains(topic, "/") {
		topicName = fmt.Sprintf("projects/%s/topics/%s", projectID, topic)
	}
	return &mailboxWatcher{
		credProvider: credProvider,
		gmailService: gmailService,
		topicName:    topicName,
	}
}

func (w *mailboxWatcher) WatchMailbox(userID string) error {
	creds, err := w.credProvider.Resolve(userID)
	if err != nil {
		return err
	}
	if creds == nil || !creds.Connected() {
		return fmt.Errorf("no connected mail account")
	}
	if creds.Provider == "imap" {
		return fmt.Errorf("push notifications are not available for IMAP accounts")
	}
	return w.gmailService.Watch(context.Background(), creds.AccessToken, creds.RefreshToken, w.topicName, creds.OnTokenRefresh)
}
