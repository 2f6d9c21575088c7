package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FallbackSummary is stored when a message could not be classified
const FallbackSummary = "could not analyze"

// Proposal is the structured result of classifying one message. It is
// transient: the sync pipeline absorbs it into the persisted message.
type Proposal struct {
	IsImportant     bool       `json:"isImportant"`
	Summary         string     `json:"summary"`
	Action          string     `json:"action"` // "none", "add_calendar" or "pay_invoice"
	AppointmentDate *time.Time `json:"appointmentDate,omitempty"`
	Title           string     `json:"title,omitempty"`
}

// FallbackProposal is the safe default used when the classifier fails or
// returns something unparseable. Classification is advisory; a broken
// classifier must never block ingestion.
func FallbackProposal() *Proposal {
	return &Proposal{
		IsImportant: false,
		Summary:     FallbackSummary,
		Action:      "none",
	}
}

// rawProposal mirrors the JSON shape the model is asked to produce. All
// fields are optional so a partial response still parses.
type rawProposal struct {
	IsImportant     bool   `json:"isImportant"`
	Summary         string `json:"summary"`
	Action          string `json:"action"`
	AppointmentDate string `json:"appointmentDate"`
	Title           string `json:"title"`
}

// appointmentLayouts are tried in order. Models frequently omit the zone
// offset, so the bare layouts are interpreted in local time.
var appointmentLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseProposal turns raw model output into a Proposal. It is deliberately
// the single place that knows the response shape: it strips markdown code
// fences, extracts the outermost JSON object, tolerates missing fields and
// coerces unknown action values to "none". An unparseable appointment date
// is dropped, not an error.
func ParseProposal(text string) (*Proposal, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object in classifier response")
	}
	cleaned = cleaned[jsonStart : jsonEnd+1]

	var raw rawProposal
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	proposal := &Proposal{
		IsImportant: raw.IsImportant,
		Summary:     strings.TrimSpace(raw.Summary),
		Action:      normalizeAction(raw.Action),
		Title:       strings.TrimSpace(raw.Title),
	}

	if raw.AppointmentDate != "" {
		if t := parseAppointmentDate(raw.AppointmentDate); t != nil {
			proposal.AppointmentDate = t
		}
	}

	return proposal, nil
}

func normalizeAction(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "add_calendar":
		return "add_calendar"
	case "pay_invoice":
		return "pay_invoice"
	default:
		return "none"
	}
}

func parseAppointmentDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	for _, layout := range appointmentLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
