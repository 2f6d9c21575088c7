package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	messagedomain "asist-backend/internal/message/domain"
	messagerepo "asist-backend/internal/message/repository"
	reminderdomain "asist-backend/internal/reminder/domain"
	reminderrepo "asist-backend/internal/reminder/repository"
	"asist-backend/pkg/ai"
)

// morningHour is the local hour of the morning-of reminder
const morningHour = 8

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	credProvider CredentialProvider
	mail         MailProvider
	calendar     CalendarProvider
	classifier   ai.ClassifierService
	messageRepo  messagerepo.MessageRepository
	reminderRepo reminderrepo.ReminderRepository

	batchSize int
	timeout   time.Duration // bound on each external call
	now       func() time.Time
}

// NewSyncUsecase creates a new sync orchestrator. All collaborators are
// injected so runs are reproducible under test.
func NewSyncUsecase(
	credProvider CredentialProvider,
	mail MailProvider,
	calendar CalendarProvider,
	classifier ai.ClassifierService,
	messageRepo messagerepo.MessageRepository,
	reminderRepo reminderrepo.ReminderRepository,
	batchSize int,
	timeout time.Duration,
) SyncUsecase {
	if batchSize <= 0 {
		batchSize = 10
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &syncUsecase{
		credProvider: credProvider,
		mail:         mail,
		calendar:     calendar,
		classifier:   classifier,
		messageRepo:  messageRepo,
		reminderRepo: reminderRepo,
		batchSize:    batchSize,
		timeout:      timeout,
		now:          time.Now,
	}
}

// RunSync executes one ingestion run for a user. Only credential resolution
// and the initial listing call can fail the run as a whole; everything after
// that is contained per message, so a flaky downstream dependency costs at
// most one message and the run stays safely re-triggerable.
func (u *syncUsecase) RunSync(ctx context.Context, userID string) SyncResult {
	creds, err := u.credProvider.Resolve(userID)
	if err != nil {
		log.Printf("[Sync] Failed to resolve credentials for user %s: %v", userID, err)
		return SyncResult{Success: false, Error: ErrorUnauthenticated}
	}
	if creds == nil || !creds.Connected() {
		log.Printf("[Sync] No mail account connected for user %s", userID)
		return SyncResult{Success: false, Error: ErrorUnauthenticated}
	}

	listCtx, cancel := context.WithTimeout(ctx, u.timeout)
	ids, err := u.mail.ListUnread(listCtx, creds, u.batchSize)
	cancel()
	if err != nil {
		log.Printf("[Sync] Failed to list unread messages for user %s: %v", userID, err)
		return SyncResult{Success: false, Error: ErrorProviderUnavailable}
	}

	syncedCount := 0
	for _, externalID := range ids {
		if u.processMessage(ctx, creds, externalID) {
			syncedCount++
		}
	}

	log.Printf("[Sync] Run complete for user %s: %d of %d messages newly synced", userID, syncedCount, len(ids))
	return SyncResult{Success: true, SyncedCount: syncedCount}
}

// processMessage ingests a single unread message. Returns true only when the
// message was newly persisted. Any failure is logged and skipped so one
// message cannot abort the batch.
func (u *syncUsecase) processMessage(ctx context.Context, creds *Credentials, externalID string) bool {
	// Dedup check: already ingested means skip, no error. This is what makes
	// repeated and overlapping runs safe.
	existing, err := u.messageRepo.FindByExternalID(creds.UserID, externalID)
	if err != nil {
		// The insert below enforces the constraint either way
		log.Printf("[Sync] Dedup lookup failed for message %s: %v", externalID, err)
	}
	if existing != nil {
		return false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, u.timeout)
	detail, err := u.mail.GetMessage(fetchCtx, creds, externalID)
	cancel()
	if err != nil {
		log.Printf("[Sync] Failed to fetch message %s: %v", externalID, err)
		return false
	}

	subject := detail.Subject
	if subject == "" {
		subject = messagedomain.PlaceholderSubject
	}
	sender := detail.Sender
	if sender == "" {
		sender = messagedomain.PlaceholderSender
	}

	proposal := u.classify(ctx, creds, subject+" - "+detail.Snippet)

	message := &messagedomain.Message{
		UserID:          creds.UserID,
		ExternalID:      externalID,
		Subject:         subject,
		Sender:          sender,
		Snippet:         detail.Snippet,
		Summary:         proposal.Summary,
		IsImportant:     proposal.IsImportant,
		ProposedAction:  messagedomain.ActionKind(proposal.Action),
		AppointmentDate: proposal.AppointmentDate,
		ActionTitle:     proposal.Title,
		Status:          messagedomain.StatusPending,
	}

	if err := u.messageRepo.Create(message); err != nil {
		if errors.Is(err, messagerepo.ErrDuplicateMessage) {
			// Lost the race against a concurrent run for the same user;
			// the message is already synced
			log.Printf("[Sync] Message %s inserted by a concurrent run, skipping", externalID)
		} else {
			log.Printf("[Sync] Failed to persist message %s: %v", externalID, err)
		}
		return false
	}

	if message.ProposedAction == messagedomain.ActionAddCalendar && message.AppointmentDate != nil {
		u.fanOut(ctx, creds, message)
	}

	return true
}

// classify submits text to the classifier and never fails: any adapter error
// or malformed response degrades to the safe default. Classification is
// advisory and must not block ingestion.
func (u *syncUsecase) classify(ctx context.Context, creds *Credentials, text string) *ai.Proposal {
	classifyCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	proposal, err := u.classifier.ClassifyMessage(classifyCtx, text, creds.AIAPIKey)
	if err != nil || proposal == nil {
		log.Printf("[Sync] Classification failed, using fallback: %v", err)
		return ai.FallbackProposal()
	}
	return proposal
}

// fanOut derives the side effects of an actionable message: one calendar
// event and a tiered set of reminders. Every step is independently
// best-effort; a partial reminder set is an accepted outcome, not a defect,
// and nothing here rolls back the already-persisted message.
func (u *syncUsecase) fanOut(ctx context.Context, creds *Credentials, message *messagedomain.Message) {
	title := message.ActionTitle
	if title == "" {
		title = message.Subject
	}
	when := *message.AppointmentDate

	calendarCtx, cancel := context.WithTimeout(ctx, u.timeout)
	eventID, err := u.calendar.CreateEvent(calendarCtx, creds, title, when)
	cancel()
	if err != nil {
		log.Printf("[Sync] Failed to create calendar event for message %s: %v", message.ID, err)
	} else if eventID != "" {
		if err := u.messageRepo.SetCalendarEvent(message.ID, eventID); err != nil {
			log.Printf("[Sync] Failed to link calendar event %s to message %s: %v", eventID, message.ID, err)
		}
	}

	// Primary reminder at the appointment itself
	u.createReminder(&reminderdomain.Reminder{
		UserID:      creds.UserID,
		Title:       title,
		ScheduledAt: when,
		Priority:    reminderdomain.PriorityNormal,
		Description: "Automatically created from email: " + message.Summary,
		ReferenceID: message.ID,
	})

	// Pre-event reminder one hour ahead
	u.createReminder(&reminderdomain.Reminder{
		UserID:      creds.UserID,
		Title:       "Reminder: " + title + " (1 hour left)",
		ScheduledAt: when.Add(-time.Hour),
		Priority:    reminderdomain.PriorityHigh,
		ReferenceID: message.ID,
	})

	// Morning-of reminder at 08:00 local on the appointment day, but never
	// back-dated: an afternoon appointment synced after its morning window
	// gets no morning nudge
	morningOf := time.Date(when.Year(), when.Month(), when.Day(), morningHour, 0, 0, 0, when.Location())
	if u.now().Before(morningOf) {
		u.createReminder(&reminderdomain.Reminder{
			UserID:      creds.UserID,
			Title:       "Today: " + title,
			ScheduledAt: morningOf,
			Priority:    reminderdomain.PriorityNormal,
			ReferenceID: message.ID,
		})
	}
}

func (u *syncUsecase) createReminder(reminder *reminderdomain.Reminder) {
	if err := u.reminderRepo.Create(reminder); err != nil {
		log.Printf("[Sync] Failed to create reminder %q for user %s: %v", reminder.Title, reminder.UserID, err)
	}
}
