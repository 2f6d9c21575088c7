package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	messagedomain "asist-backend/internal/message/domain"
)

// snippetLimit caps the preview text extracted from a message body,
// roughly matching the snippet length Gmail returns.
const snippetLimit = 200

// Service talks to generic IMAP mailboxes for accounts that are not
// connected through Google. Connections are short-lived: every call dials,
// authenticates and logs out, so no session state survives between runs.
type Service struct {
	dialTimeout time.Duration
}

func NewService(dialTimeout time.Duration) *Service {
	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}
	return &Service{dialTimeout: dialTimeout}
}

// connect dials the server with TLS, logs in and selects INBOX read-only
// so that fetching never flips \Seen flags.
func (s *Service) connect(server, username, password string) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", server, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", server, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return c, nil
}

// ListUnread returns up to max UIDs of unseen messages, newest first,
// formatted as decimal strings.
func (s *Service) ListUnread(ctx context.Context, server, username, password string, max int) ([]string, error) {
	c, err := s.connect(server, username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}

	// UIDs come back ascending; take the tail so the newest mail wins
	// when the mailbox holds more unseen messages than the batch allows.
	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}

	ids := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		ids = append(ids, strconv.FormatUint(uint64(uids[i]), 10))
	}

	log.Printf("[IMAP] Listed %d unseen messages for %s", len(ids), username)
	return ids, nil
}

// GetMessage fetches the envelope and body of one message by UID. Missing
// subject or sender come back as empty strings rather than failing.
func (s *Service) GetMessage(ctx context.Context, server, username, password, externalID string) (*messagedomain.MessageDetail, error) {
	uid, err := strconv.ParseUint(externalID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", externalID, err)
	}

	c, err := s.connect(server, username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", uid)
	}

	detail := &messagedomain.MessageDetail{ExternalID: externalID}

	if msg.Envelope != nil {
		detail.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			if from.PersonalName != "" {
				detail.Sender = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
			} else {
				detail.Sender = from.Address()
			}
		}
	}

	if body := msg.GetBody(section); body != nil {
		detail.Snippet = extractSnippet(body)
	}

	return detail, nil
}

// ValidateAccount checks that the stored IMAP settings still authenticate
func (s *Service) ValidateAccount(ctx context.Context, server, username, password string) error {
	c, err := s.connect(server, username, password)
	if err != nil {
		return err
	}
	c.Logout()
	return nil
}

// extractSnippet pulls the first text/plain part of the message and
// collapses it into a short single-line preview.
func extractSnippet(body io.Reader) string {
	mr, err := mail.CreateReader(body)
	if err != nil {
		log.Printf("[IMAP] Failed to parse message body: %v", err)
		return ""
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[IMAP] Failed to read message part: %v", err)
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if !strings.HasPrefix(ct, "text/plain") {
			continue
		}

		raw, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		return collapse(string(raw))
	}

	return ""
}

func collapse(text string) string {
	snippet := strings.Join(strings.Fields(text), " ")
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	return snippet
}
