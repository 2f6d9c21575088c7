package ai

import (
	"fmt"
	"time"
)

// classifyPrompt builds the prompt shared by all providers so switching
// providers doesn't change classification behavior.
func classifyPrompt(text string, now time.Time, assumeYear int) string {
	return fmt.Sprintf(`You are an email triage assistant. Analyze the email content below and respond in JSON format.
Current real time: %s

Email: "%s"

Criteria:
1. Does this mail contain an important notification, invoice, appointment or task? (isImportant: boolean)
2. If it is an appointment/meeting, extract the date and time. If no year is given, assume %d (appointmentDate: ISO string or null)
3. Produce a short summary (summary: string)
4. If an action is needed, name it (action: "add_calendar", "pay_invoice", "none")
5. Suggest a title (title: string)

Return ONLY JSON. Do not add any other text.
Example format: {"isImportant": true, "appointmentDate": "%d-MM-DDTHH:mm:ss", "summary": "...", "action": "add_calendar", "title": "..."}`,
		now.Format(time.RFC3339), text, assumeYear, assumeYear)
}
