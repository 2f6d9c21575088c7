package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	authrepo "asist-backend/internal/auth/repository"
	"asist-backend/internal/reminder/domain"
	"asist-backend/internal/reminder/repository"
	"asist-backend/pkg/fcm"
)

// PushSender delivers a notification to a set of device tokens and reports
// which tokens failed
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// ReminderScheduler pushes due reminders to the user's devices over FCM
type ReminderScheduler struct {
	reminderRepo repository.ReminderRepository
	fcmRepo      authrepo.FCMTokenRepository
	sender       PushSender
	interval     time.Duration
	stopChan     chan struct{}
}

// NewReminderScheduler creates a new scheduler
func NewReminderScheduler(
	reminderRepo repository.ReminderRepository,
	fcmRepo authrepo.FCMTokenRepository,
	sender PushSender,
	interval time.Duration,
) *ReminderScheduler {
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	return &ReminderScheduler{
		reminderRepo: reminderRepo,
		fcmRepo:      fcmRepo,
		sender:       sender,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ReminderScheduler) Start() {
	if s.sender == nil {
		log.Println("[ReminderScheduler] Push sender not available, scheduler disabled")
		return
	}

	log.Printf("[ReminderScheduler] Starting reminder delivery loop (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.deliverDueReminders()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.deliverDueReminders()
			case <-s.stopChan:
				log.Println("[ReminderScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ReminderScheduler) Stop() {
	close(s.stopChan)
}

// deliverDueReminders finds reminders past their scheduled time and pushes
// them to the owner's devices
func (s *ReminderScheduler) deliverDueReminders() {
	reminders, err := s.reminderRepo.FindPendingDeliveries(time.Now())
	if err != nil {
		log.Printf("[ReminderScheduler] Error finding due reminders: %v", err)
		return
	}

	if len(reminders) == 0 {
		return
	}

	log.Printf("[ReminderScheduler] Found %d reminders due for delivery", len(reminders))

	for _, reminder := range reminders {
		tokens, err := s.fcmRepo.GetTokensByUserID(reminder.UserID)
		if err != nil {
			log.Printf("[ReminderScheduler] Error getting device tokens for user %s: %v", reminder.UserID, err)
			continue
		}

		if len(tokens) == 0 {
			// Nobody to notify; mark delivered so we don't re-scan it forever
			s.markDelivered(reminder.ID)
			continue
		}

		title := reminder.Title
		if reminder.Priority == domain.PriorityHigh {
			title = "❗ " + title
		}
		body := reminder.Description
		if body == "" {
			body = fmt.Sprintf("Scheduled for %s", reminder.ScheduledAt.Format("02/01/2006 15:04"))
		}

		var tokenStrings []string
		for _, t := range tokens {
			tokenStrings = append(tokenStrings, t.Token)
		}

		notification := fcm.NotificationData{
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":         "reminder",
				"reminder_id":  reminder.ID,
				"reference_id": reminder.ReferenceID,
				"priority":     string(reminder.Priority),
				"click_action": "/reminders",
			},
		}

		failedTokens, err := s.sender.SendToDevices(context.Background(), tokenStrings, notification)
		if err != nil {
			log.Printf("[ReminderScheduler] Error delivering reminder %s: %v", reminder.ID, err)
		} else {
			log.Printf("[ReminderScheduler] Delivered reminder %q to %d devices", reminder.Title, len(tokenStrings)-len(failedTokens))
		}

		// Cleanup tokens the provider rejected
		for _, token := range failedTokens {
			if err := s.fcmRepo.DeleteToken(token); err != nil {
				log.Printf("[ReminderScheduler] Error deleting rejected token: %v", err)
			}
		}

		// Mark delivered regardless of success to avoid spamming on retries
		s.markDelivered(reminder.ID)
	}
}

func (s *ReminderScheduler) markDelivered(id string) {
	if err := s.reminderRepo.MarkDelivered(id); err != nil {
		log.Printf("[ReminderScheduler] Error marking reminder %s delivered: %v", id, err)
	}
}
