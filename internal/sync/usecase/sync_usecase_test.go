package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	messagedomain "asist-backend/internal/message/domain"
	messagerepo "asist-backend/internal/message/repository"
	reminderdomain "asist-backend/internal/reminder/domain"
	"asist-backend/pkg/ai"
)

type fakeCredProvider struct {
	creds *Credentials
	err   error
}

func (f *fakeCredProvider) Resolve(userID string) (*Credentials, error) {
	return f.creds, f.err
}

type fakeMail struct {
	ids      []string
	listErr  error
	details  map[string]*messagedomain.MessageDetail
	fetchErr map[string]error
}

func (f *fakeMail) ListUnread(ctx context.Context, creds *Credentials, max int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if max > 0 && len(f.ids) > max {
		return f.ids[:max], nil
	}
	return f.ids, nil
}

func (f *fakeMail) GetMessage(ctx context.Context, creds *Credentials, externalID string) (*messagedomain.MessageDetail, error) {
	if err := f.fetchErr[externalID]; err != nil {
		return nil, err
	}
	detail, ok := f.details[externalID]
	if !ok {
		return nil, fmt.Errorf("no such message: %s", externalID)
	}
	return detail, nil
}

type createdEvent struct {
	title string
	start time.Time
}

type fakeCalendar struct {
	created []createdEvent
	err     error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, creds *Credentials, title string, start time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, createdEvent{title: title, start: start})
	return fmt.Sprintf("event-%d", len(f.created)), nil
}

type fakeClassifier struct {
	proposal *ai.Proposal
	err      error
	lastKey  string
}

func (f *fakeClassifier) ClassifyMessage(ctx context.Context, text, apiKeyOverride string) (*ai.Proposal, error) {
	f.lastKey = apiKeyOverride
	if f.err != nil {
		return nil, f.err
	}
	return f.proposal, nil
}

type memMessageRepo struct {
	messages  []*messagedomain.Message
	createErr error
	lookupErr error
}

func (r *memMessageRepo) Create(message *messagedomain.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, m := range r.messages {
		if m.UserID == message.UserID && m.ExternalID == message.ExternalID {
			return messagerepo.ErrDuplicateMessage
		}
	}
	message.ID = fmt.Sprintf("msg-%d", len(r.messages)+1)
	r.messages = append(r.messages, message)
	return nil
}

func (r *memMessageRepo) SetCalendarEvent(id, eventID string) error {
	for _, m := range r.messages {
		if m.ID == id {
			m.CalendarEventID = eventID
			return nil
		}
	}
	return errors.New("not found")
}

func (r *memMessageRepo) FindByExternalID(userID, externalID string) (*messagedomain.Message, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, m := range r.messages {
		if m.UserID == userID && m.ExternalID == externalID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepo) FindByID(id string) (*messagedomain.Message, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepo) FindByUserID(userID string, status *messagedomain.ProcessingStatus, limit, offset int) ([]*messagedomain.Message, int64, error) {
	var out []*messagedomain.Message
	for _, m := range r.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memMessageRepo) UpdateStatus(userID, id string, status messagedomain.ProcessingStatus) error {
	for _, m := range r.messages {
		if m.UserID == userID && m.ID == id {
			m.Status = status
			return nil
		}
	}
	return errors.New("not found")
}

type memReminderRepo struct {
	reminders []*reminderdomain.Reminder
	createErr error
}

func (r *memReminderRepo) Create(reminder *reminderdomain.Reminder) error {
	if r.createErr != nil {
		return r.createErr
	}
	reminder.ID = fmt.Sprintf("rem-%d", len(r.reminders)+1)
	r.reminders = append(r.reminders, reminder)
	return nil
}

func (r *memReminderRepo) FindByUserID(userID string, limit, offset int) ([]*reminderdomain.Reminder, int64, error) {
	var out []*reminderdomain.Reminder
	for _, rem := range r.reminders {
		if rem.UserID == userID {
			out = append(out, rem)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memReminderRepo) FindByReferenceID(referenceID string) ([]*reminderdomain.Reminder, error) {
	var out []*reminderdomain.Reminder
	for _, rem := range r.reminders {
		if rem.ReferenceID == referenceID {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (r *memReminderRepo) Delete(userID, id string) error {
	for i, rem := range r.reminders {
		if rem.UserID == userID && rem.ID == id {
			r.reminders = append(r.reminders[:i], r.reminders[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (r *memReminderRepo) FindPendingDeliveries(now time.Time) ([]*reminderdomain.Reminder, error) {
	var out []*reminderdomain.Reminder
	for _, rem := range r.reminders {
		if !rem.Delivered && !rem.ScheduledAt.After(now) {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (r *memReminderRepo) MarkDelivered(id string) error {
	for _, rem := range r.reminders {
		if rem.ID == id {
			rem.Delivered = true
			return nil
		}
	}
	return errors.New("not found")
}

type fixture struct {
	creds      *fakeCredProvider
	mail       *fakeMail
	calendar   *fakeCalendar
	classifier *fakeClassifier
	messages   *memMessageRepo
	reminders  *memReminderRepo
	uc         *syncUsecase
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		creds: &fakeCredProvider{creds: &Credentials{
			UserID:      "user-1",
			AccessToken: "access",
		}},
		mail:       &fakeMail{details: map[string]*messagedomain.MessageDetail{}, fetchErr: map[string]error{}},
		calendar:   &fakeCalendar{},
		classifier: &fakeClassifier{proposal: &ai.Proposal{Summary: "nothing much", Action: "none"}},
		messages:   &memMessageRepo{},
		reminders:  &memReminderRepo{},
	}
	uc := NewSyncUsecase(f.creds, f.mail, f.calendar, f.classifier, f.messages, f.reminders, 10, time.Second).(*syncUsecase)
	uc.now = func() time.Time { return now }
	f.uc = uc
	return f
}

func (f *fixture) addMessage(id, subject, sender, snippet string) {
	f.mail.ids = append(f.mail.ids, id)
	f.mail.details[id] = &messagedomain.MessageDetail{
		ExternalID: id,
		Subject:    subject,
		Sender:     sender,
		Snippet:    snippet,
	}
}

func reminderByPrefix(t *testing.T, reminders []*reminderdomain.Reminder, prefix string) *reminderdomain.Reminder {
	t.Helper()
	for _, r := range reminders {
		if strings.HasPrefix(r.Title, prefix) {
			return r
		}
	}
	t.Fatalf("no reminder with title prefix %q, have %d reminders", prefix, len(reminders))
	return nil
}

func TestRunSyncEndToEnd(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 10, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Invoice #42", "billing@acme.com", "Your payment is due on Feb 27 at 10:00")
	f.classifier.proposal = &ai.Proposal{
		IsImportant:     true,
		Summary:         "Invoice due Friday morning",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		Title:           "Pay invoice #42",
	}

	result := f.uc.RunSync(context.Background(), "user-1")

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.SyncedCount != 1 {
		t.Fatalf("expected 1 synced message, got %d", result.SyncedCount)
	}

	if len(f.messages.messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(f.messages.messages))
	}
	msg := f.messages.messages[0]
	if msg.Status != messagedomain.StatusPending {
		t.Errorf("expected status pending, got %q", msg.Status)
	}
	if !msg.IsImportant || msg.Summary != "Invoice due Friday morning" {
		t.Errorf("classifier result not absorbed into message: %+v", msg)
	}
	if msg.ProposedAction != messagedomain.ActionAddCalendar {
		t.Errorf("expected add_calendar action, got %q", msg.ProposedAction)
	}

	if len(f.calendar.created) != 1 {
		t.Fatalf("expected 1 calendar event, got %d", len(f.calendar.created))
	}
	if f.calendar.created[0].title != "Pay invoice #42" || !f.calendar.created[0].start.Equal(appointment) {
		t.Errorf("unexpected calendar event: %+v", f.calendar.created[0])
	}
	if msg.CalendarEventID != "event-1" {
		t.Errorf("calendar event not linked to message: %q", msg.CalendarEventID)
	}

	if len(f.reminders.reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(f.reminders.reminders))
	}

	at := reminderByPrefix(t, f.reminders.reminders, "Pay invoice")
	if !at.ScheduledAt.Equal(appointment) || at.Priority != reminderdomain.PriorityNormal {
		t.Errorf("primary reminder wrong: %+v", at)
	}

	pre := reminderByPrefix(t, f.reminders.reminders, "Reminder: ")
	if pre.Title != "Reminder: Pay invoice #42 (1 hour left)" {
		t.Errorf("unexpected pre-event title: %q", pre.Title)
	}
	if !pre.ScheduledAt.Equal(appointment.Add(-time.Hour)) || pre.Priority != reminderdomain.PriorityHigh {
		t.Errorf("pre-event reminder wrong: %+v", pre)
	}

	morning := reminderByPrefix(t, f.reminders.reminders, "Today: ")
	wantMorning := time.Date(2026, 2, 27, 8, 0, 0, 0, time.Local)
	if !morning.ScheduledAt.Equal(wantMorning) {
		t.Errorf("morning reminder at %v, want %v", morning.ScheduledAt, wantMorning)
	}

	for _, r := range f.reminders.reminders {
		if r.ReferenceID != msg.ID {
			t.Errorf("reminder %q not linked to message: ref=%q", r.Title, r.ReferenceID)
		}
	}
}

func TestRunSyncIsIdempotent(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 10, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Meeting", "boss@acme.com", "Friday 10am")
	f.classifier.proposal = &ai.Proposal{
		Summary:         "Meeting Friday",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		Title:           "Team meeting",
	}

	first := f.uc.RunSync(context.Background(), "user-1")
	second := f.uc.RunSync(context.Background(), "user-1")

	if first.SyncedCount != 1 {
		t.Fatalf("first run synced %d, want 1", first.SyncedCount)
	}
	if !second.Success || second.SyncedCount != 0 {
		t.Fatalf("second run should succeed with 0 synced, got %+v", second)
	}
	if len(f.messages.messages) != 1 {
		t.Errorf("duplicate message persisted: %d", len(f.messages.messages))
	}
	if len(f.calendar.created) != 1 || len(f.reminders.reminders) != 3 {
		t.Errorf("side effects duplicated: %d events, %d reminders", len(f.calendar.created), len(f.reminders.reminders))
	}
}

func TestRunSyncNoConnectedAccount(t *testing.T) {
	f := newFixture(time.Now())
	f.creds.creds = nil

	result := f.uc.RunSync(context.Background(), "user-1")
	if result.Success || result.Error != ErrorUnauthenticated {
		t.Fatalf("expected unauthenticated, got %+v", result)
	}

	f.creds.creds = &Credentials{UserID: "user-1"} // no tokens at all
	result = f.uc.RunSync(context.Background(), "user-1")
	if result.Success || result.Error != ErrorUnauthenticated {
		t.Fatalf("expected unauthenticated for empty token, got %+v", result)
	}
}

func TestRunSyncCredentialResolutionError(t *testing.T) {
	f := newFixture(time.Now())
	f.creds.err = errors.New("db down")
	f.creds.creds = nil

	result := f.uc.RunSync(context.Background(), "user-1")
	if result.Success || result.Error != ErrorUnauthenticated {
		t.Fatalf("expected unauthenticated, got %+v", result)
	}
}

func TestRunSyncListingFailureAbortsRun(t *testing.T) {
	f := newFixture(time.Now())
	f.mail.listErr = errors.New("503 from provider")

	result := f.uc.RunSync(context.Background(), "user-1")
	if result.Success || result.Error != ErrorProviderUnavailable {
		t.Fatalf("expected provider_unavailable, got %+v", result)
	}
	if len(f.messages.messages) != 0 {
		t.Errorf("no messages should be persisted on listing failure")
	}
}

func TestClassifierFailureFallsBackAndStillPersists(t *testing.T) {
	f := newFixture(time.Now())
	f.addMessage("m1", "Newsletter", "news@acme.com", "This week in tech")
	f.classifier.err = errors.New("model overloaded")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("classification failure must not block ingestion, got %+v", result)
	}

	msg := f.messages.messages[0]
	if msg.Summary != ai.FallbackSummary {
		t.Errorf("expected fallback summary, got %q", msg.Summary)
	}
	if msg.IsImportant {
		t.Errorf("fallback must not mark message important")
	}
	if msg.ProposedAction != messagedomain.ActionNone {
		t.Errorf("fallback action should be none, got %q", msg.ProposedAction)
	}
	if len(f.calendar.created) != 0 || len(f.reminders.reminders) != 0 {
		t.Errorf("fallback must not fan out side effects")
	}
}

func TestCalendarFailureDoesNotBlockReminders(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 10, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Dentist", "clinic@acme.com", "Appointment Friday 10am")
	f.calendar.err = errors.New("quota exceeded")
	f.classifier.proposal = &ai.Proposal{
		Summary:         "Dentist appointment",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		Title:           "Dentist",
	}

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("calendar failure must not fail the message, got %+v", result)
	}
	if len(f.reminders.reminders) != 3 {
		t.Errorf("expected all 3 reminders despite calendar failure, got %d", len(f.reminders.reminders))
	}
}

func TestReminderFailureIsContained(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 10, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Dentist", "clinic@acme.com", "Appointment Friday 10am")
	f.reminders.createErr = errors.New("disk full")
	f.classifier.proposal = &ai.Proposal{
		Summary:         "Dentist appointment",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		Title:           "Dentist",
	}

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("reminder failures must not fail the message, got %+v", result)
	}
	if len(f.calendar.created) != 1 {
		t.Errorf("calendar event should still be created")
	}
}

func TestMorningReminderOnlyWhenStillAhead(t *testing.T) {
	// Sync happens at 09:00 on the appointment day: the 08:00 slot is
	// already gone, so only two reminders remain.
	now := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 15, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Review", "lead@acme.com", "This afternoon at 3pm")
	f.classifier.proposal = &ai.Proposal{
		Summary:         "Afternoon review",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		Title:           "Design review",
	}

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.reminders.reminders) != 2 {
		t.Fatalf("expected 2 reminders (no morning nudge), got %d", len(f.reminders.reminders))
	}
	for _, r := range f.reminders.reminders {
		if strings.HasPrefix(r.Title, "Today: ") {
			t.Errorf("morning reminder should have been skipped: %+v", r)
		}
	}
}

func TestMissingHeadersGetPlaceholders(t *testing.T) {
	f := newFixture(time.Now())
	f.addMessage("m1", "", "", "raw body only")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	msg := f.messages.messages[0]
	if msg.Subject != messagedomain.PlaceholderSubject {
		t.Errorf("expected placeholder subject, got %q", msg.Subject)
	}
	if msg.Sender != messagedomain.PlaceholderSender {
		t.Errorf("expected placeholder sender, got %q", msg.Sender)
	}
}

func TestEventTitleFallsBackToSubject(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 0, 0, 0, time.Local)
	appointment := time.Date(2026, 2, 27, 10, 0, 0, 0, time.Local)

	f := newFixture(now)
	f.addMessage("m1", "Standup moved", "lead@acme.com", "Friday 10am instead")
	f.classifier.proposal = &ai.Proposal{
		Summary:         "Standup moved to Friday",
		Action:          "add_calendar",
		AppointmentDate: &appointment,
		// no Title from the model
	}

	if result := f.uc.RunSync(context.Background(), "user-1"); !result.Success {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.calendar.created) != 1 || f.calendar.created[0].title != "Standup moved" {
		t.Fatalf("event title should fall back to subject, got %+v", f.calendar.created)
	}
}

func TestFetchFailureSkipsOnlyThatMessage(t *testing.T) {
	f := newFixture(time.Now())
	f.addMessage("m1", "First", "a@acme.com", "")
	f.addMessage("m2", "Second", "b@acme.com", "")
	f.mail.fetchErr["m1"] = errors.New("404")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success {
		t.Fatalf("one bad message must not fail the run: %+v", result)
	}
	if result.SyncedCount != 1 {
		t.Fatalf("expected 1 synced, got %d", result.SyncedCount)
	}
	if len(f.messages.messages) != 1 || f.messages.messages[0].ExternalID != "m2" {
		t.Errorf("wrong message persisted: %+v", f.messages.messages)
	}
}

func TestConcurrentInsertTreatedAsAlreadySynced(t *testing.T) {
	f := newFixture(time.Now())
	f.addMessage("m1", "Race", "a@acme.com", "")

	// A concurrent run inserted the row between our dedup lookup and our
	// insert. Pre-seed the store but make the lookup miss it.
	f.messages.messages = append(f.messages.messages, &messagedomain.Message{
		ID: "msg-0", UserID: "user-1", ExternalID: "m1",
	})
	f.messages.lookupErr = errors.New("transient lookup error")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success {
		t.Fatalf("duplicate insert must not fail the run: %+v", result)
	}
	if result.SyncedCount != 0 {
		t.Errorf("lost race counts as already synced, got %d", result.SyncedCount)
	}
	if len(f.messages.messages) != 1 {
		t.Errorf("duplicate row persisted")
	}
}

func TestDedupLookupErrorStillInserts(t *testing.T) {
	f := newFixture(time.Now())
	f.addMessage("m1", "New mail", "a@acme.com", "")
	f.messages.lookupErr = errors.New("transient lookup error")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("lookup error should not block ingestion, got %+v", result)
	}
}

func TestPerUserAPIKeyReachesClassifier(t *testing.T) {
	f := newFixture(time.Now())
	f.creds.creds.AIAPIKey = "user-key"
	f.addMessage("m1", "Hello", "a@acme.com", "")

	if result := f.uc.RunSync(context.Background(), "user-1"); !result.Success {
		t.Fatalf("unexpected result %+v", result)
	}
	if f.classifier.lastKey != "user-key" {
		t.Errorf("classifier got key %q, want user-key", f.classifier.lastKey)
	}
}

func TestIMAPCredentialsCountAsConnected(t *testing.T) {
	f := newFixture(time.Now())
	f.creds.creds = &Credentials{
		UserID:       "user-1",
		Provider:     "imap",
		IMAPServer:   "imap.acme.com:993",
		IMAPUsername: "user@acme.com",
		IMAPPassword: "secret",
	}
	f.addMessage("m1", "Hello", "a@acme.com", "")

	result := f.uc.RunSync(context.Background(), "user-1")
	if !result.Success || result.SyncedCount != 1 {
		t.Fatalf("IMAP account should sync, got %+v", result)
	}
}
