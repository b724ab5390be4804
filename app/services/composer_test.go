package services

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/evercare-app/notification-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atHour(hour int) time.Time {
	return time.Date(2026, 3, 10, hour, 30, 0, 0, time.UTC)
}

func TestTimeOfDayAt(t *testing.T) {
	assert.Equal(t, TimeOfDayEvening, TimeOfDayAt(atHour(4)))
	assert.Equal(t, TimeOfDayMorning, TimeOfDayAt(atHour(5)))
	assert.Equal(t, TimeOfDayMorning, TimeOfDayAt(atHour(11)))
	assert.Equal(t, TimeOfDayAfternoon, TimeOfDayAt(atHour(12)))
	assert.Equal(t, TimeOfDayAfternoon, TimeOfDayAt(atHour(17)))
	assert.Equal(t, TimeOfDayEvening, TimeOfDayAt(atHour(18)))
	assert.Equal(t, TimeOfDayEvening, TimeOfDayAt(atHour(23)))
}

func TestEstimateSpokenSeconds(t *testing.T) {
	assert.Equal(t, 5, EstimateSpokenSeconds(""))
	assert.Equal(t, 5, EstimateSpokenSeconds("take your pills"))

	// 30 words at 2.5 words per second is 12s, plus the 3s pause buffer
	assert.Equal(t, 15, EstimateSpokenSeconds(strings.Repeat("word ", 30)))

	// 10 words: ceil(10/2.5)=4, plus buffer
	assert.Equal(t, 7, EstimateSpokenSeconds(strings.Repeat("word ", 10)))

	// Long text clamps to the maximum
	assert.Equal(t, 60, EstimateSpokenSeconds(strings.Repeat("word ", 500)))
}

func TestComposeTimeAwareGreeting(t *testing.T) {
	c := NewMessageComposer("https://example.com/hook")

	msg := c.Compose(ComposeInput{
		RecipientName: "Margaret",
		GreetingStyle: "warm",
		TimeAware:     true,
		ReminderText:  "Time for your walk.",
	}, atHour(9))

	assert.True(t, strings.HasPrefix(msg.Text, "Good morning, Margaret!"), msg.Text)
	assert.Contains(t, msg.Text, "Time for your walk.")
	assert.Empty(t, msg.VoicePrompt)
}

func TestComposeUnknownStyleFallsBackToTimeGreeting(t *testing.T) {
	c := NewMessageComposer("https://example.com/hook")

	msg := c.Compose(ComposeInput{
		RecipientName: "Margaret",
		GreetingStyle: "sassy",
		TimeAware:     true,
	}, atHour(14))

	assert.Equal(t, "Good afternoon, Margaret.", msg.Text)
}

func TestComposeWithoutTimeAwareness(t *testing.T) {
	c := NewMessageComposer("https://example.com/hook")

	msg := c.Compose(ComposeInput{
		RecipientName: "Ruth",
		ReminderText:  "Your daughter sent you a message.",
	}, atHour(9))

	assert.Equal(t, "Hello, Ruth. Your daughter sent you a message.", msg.Text)
}

func TestComposeWellbeingCheckAppendsQuestion(t *testing.T) {
	c := NewMessageComposer("https://example.com/hook")

	msg := c.Compose(ComposeInput{
		RecipientName:  "Margaret",
		GreetingStyle:  "formal",
		TimeAware:      true,
		WellbeingCheck: true,
	}, atHour(9))

	assert.True(t, strings.HasSuffix(msg.Text, "How are you feeling today?"), msg.Text)
}

func TestComposeInteractiveBuildsWellFormedPrompt(t *testing.T) {
	c := NewMessageComposer("https://example.com/hook?a=1&b=2")

	msg := c.Compose(ComposeInput{
		RecipientName:  "Margaret",
		GreetingStyle:  "warm",
		TimeAware:      true,
		WellbeingCheck: true,
		Interactive:    true,
	}, atHour(9))

	require.NotEmpty(t, msg.VoicePrompt)
	assert.Contains(t, msg.VoicePrompt, `numDigits="1"`)
	assert.Contains(t, msg.VoicePrompt, `timeout="5"`)
	assert.Contains(t, msg.VoicePrompt, "Press 1 if you are doing well.")
	assertWellFormedXML(t, msg.VoicePrompt)
}

func TestComposeInputForWellness(t *testing.T) {
	n := &models.ScheduledNotification{
		Type: models.NotificationTypeWellness,
		Body: "Checking in on you.",
		Metadata: models.NotificationMetadata{
			Wellness: &models.WellnessMetadata{Interactive: true},
		},
	}

	input := ComposeInputFor(n, Recipient{Name: "Margaret"})

	assert.True(t, input.TimeAware)
	assert.True(t, input.WellbeingCheck)
	assert.True(t, input.Interactive)
	assert.Equal(t, "warm", input.GreetingStyle)
}

func TestComposeInputForConversation(t *testing.T) {
	n := &models.ScheduledNotification{
		Type: models.NotificationTypeConversation,
		Body: "Shall we chat about your garden?",
	}

	input := ComposeInputFor(n, Recipient{Name: "Ruth", GreetingStyle: "cheerful"})

	assert.True(t, input.TimeAware)
	assert.True(t, input.Interactive)
	assert.False(t, input.WellbeingCheck)
	assert.Equal(t, "cheerful", input.GreetingStyle)
}

func TestVoiceReplyEscapesMarkup(t *testing.T) {
	reply := VoiceReply(`Take your "morning" pills & rest <soon>`)

	assert.NotContains(t, reply, "<soon>")
	assertWellFormedXML(t, reply)
}

func assertWellFormedXML(t *testing.T, markup string) {
	t.Helper()
	decoder := xml.NewDecoder(strings.NewReader(markup))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}
