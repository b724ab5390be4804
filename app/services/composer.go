// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
)

// TimeOfDay buckets the clock for greeting selection
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
)

// TimeOfDayAt buckets an hour: 05-11 morning, 12-17 afternoon, else evening
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h <= 11:
		return TimeOfDayMorning
	case h >= 12 && h <= 17:
		return TimeOfDayAfternoon
	default:
		return TimeOfDayEvening
	}
}

// ComposeInput describes what a spoken or written reminder should contain
type ComposeInput struct {
	RecipientName  string
	Type           models.NotificationType
	ReminderText   string
	GreetingStyle  string
	TimeAware      bool
	WellbeingCheck bool
	Interactive    bool
}

// ComposedMessage is the channel-ready rendering of a notification
type ComposedMessage struct {
	Text             string
	EstimatedSeconds int
	VoicePrompt      string // gather markup, set only for interactive messages
}

// MessageComposer renders notification text for delivery channels
type MessageComposer interface {
	Compose(input ComposeInput, now time.Time) ComposedMessage
}

// MessageComposerImpl implements MessageComposer
type MessageComposerImpl struct {
	gatherAction string // webhook URL the voice gather posts digits to
}

// NewMessageComposer creates a new message composer. gatherAction is the
// public voice-response webhook URL.
func NewMessageComposer(gatherAction string) MessageComposer {
	return &MessageComposerImpl{gatherAction: gatherAction}
}

// Greeting templates keyed by (style, time of day). Styles the platform does
// not know fall through to the time-of-day chain, then to the minimal form,
// so composition never fails.
var styledGreetings = map[string]map[TimeOfDay]string{
	"warm": {
		TimeOfDayMorning:   "Good morning, %s! I hope you slept well.",
		TimeOfDayAfternoon: "Good afternoon, %s! I hope your day is going nicely.",
		TimeOfDayEvening:   "Good evening, %s! I hope you had a lovely day.",
	},
	"formal": {
		TimeOfDayMorning:   "Good morning, %s.",
		TimeOfDayAfternoon: "Good afternoon, %s.",
		TimeOfDayEvening:   "Good evening, %s.",
	},
	"cheerful": {
		TimeOfDayMorning:   "Rise and shine, %s!",
		TimeOfDayAfternoon: "Hello there, %s!",
		TimeOfDayEvening:   "Hi %s, hope your evening is off to a great start!",
	},
}

var timeGreetings = map[TimeOfDay]string{
	TimeOfDayMorning:   "Good morning, %s.",
	TimeOfDayAfternoon: "Good afternoon, %s.",
	TimeOfDayEvening:   "Good evening, %s.",
}

const wellbeingQuestion = "How are you feeling today?"

// Compose renders the message text, estimates spoken duration, and builds the
// voice prompt for interactive messages
func (c *MessageComposerImpl) Compose(input ComposeInput, now time.Time) ComposedMessage {
	var parts []string

	if input.TimeAware {
		parts = append(parts, c.greeting(input.GreetingStyle, TimeOfDayAt(now), input.RecipientName))
	} else if input.RecipientName != "" {
		parts = append(parts, fmt.Sprintf("Hello, %s.", input.RecipientName))
	}

	if input.ReminderText != "" {
		parts = append(parts, input.ReminderText)
	}

	if input.WellbeingCheck {
		parts = append(parts, wellbeingQuestion)
	}

	text := strings.Join(parts, " ")

	msg := ComposedMessage{
		Text:             text,
		EstimatedSeconds: EstimateSpokenSeconds(text),
	}
	if input.Interactive {
		msg.VoicePrompt = c.gatherPrompt(text)
	}
	return msg
}

// greeting walks the fallback chain: styled template, time-of-day template,
// minimal hardcoded form
func (c *MessageComposerImpl) greeting(style string, tod TimeOfDay, name string) string {
	if byTime, ok := styledGreetings[style]; ok {
		if tmpl, ok := byTime[tod]; ok {
			return fmt.Sprintf(tmpl, name)
		}
	}
	if tmpl, ok := timeGreetings[tod]; ok {
		return fmt.Sprintf(tmpl, name)
	}
	return fmt.Sprintf("Hello, %s.", name)
}

// EstimateSpokenSeconds estimates how long the text takes to speak at normal
// pace, plus a pause buffer, clamped to the valid spoken range
func EstimateSpokenSeconds(text string) int {
	words := len(strings.Fields(text))
	seconds := int(math.Ceil(float64(words)/utils.WordsPerSecond)) + utils.PauseBufferSeconds
	if seconds < utils.MinSpokenSeconds {
		return utils.MinSpokenSeconds
	}
	if seconds > utils.MaxSpokenSeconds {
		return utils.MaxSpokenSeconds
	}
	return seconds
}

// gatherPrompt builds the interactive voice markup: speak the message, gather
// one digit, acknowledge or close depending on whether anything was pressed
func (c *MessageComposerImpl) gatherPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("<Response>")
	fmt.Fprintf(&b, `<Gather numDigits="1" timeout="%d" action="%s">`, utils.GatherTimeoutSeconds, xmlEscape(c.gatherAction))
	fmt.Fprintf(&b, "<Say>%s</Say>", xmlEscape(text))
	b.WriteString("<Say>Press 1 if you are doing well. Press 2 if you need assistance.</Say>")
	b.WriteString("</Gather>")
	b.WriteString("<Say>We did not receive a response. Take care, goodbye.</Say>")
	b.WriteString("</Response>")
	return b.String()
}

// ComposeInputFor maps a scheduled notification and its resolved recipient to
// the compose input for its type
func ComposeInputFor(n *models.ScheduledNotification, recipient Recipient) ComposeInput {
	style := recipient.GreetingStyle
	if style == "" {
		style = "warm"
	}
	input := ComposeInput{
		RecipientName: recipient.Name,
		Type:          n.Type,
		ReminderText:  n.Body,
		GreetingStyle: style,
	}
	switch n.Type {
	case models.NotificationTypeWellness:
		input.TimeAware = true
		input.WellbeingCheck = true
		if n.Metadata.Wellness != nil {
			input.Interactive = n.Metadata.Wellness.Interactive
		}
	case models.NotificationTypeConversation:
		input.TimeAware = true
		input.Interactive = true
	}
	return input
}

// VoiceReply builds a terminal spoken reply. Used by the webhook for every
// branch, so callers always hear well-formed markup.
func VoiceReply(text string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("<Response>")
	fmt.Fprintf(&b, "<Say>%s</Say>", xmlEscape(text))
	b.WriteString("</Response>")
	return b.String()
}

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}

// MockMessageComposer implements MessageComposer for testing
type MockMessageComposer struct {
	Fixed ComposedMessage
}

// NewMockMessageComposer creates a composer that always returns the fixed message
func NewMockMessageComposer(fixed ComposedMessage) MessageComposer {
	return &MockMessageComposer{Fixed: fixed}
}

// Compose returns the fixed message
func (m *MockMessageComposer) Compose(input ComposeInput, now time.Time) ComposedMessage {
	return m.Fixed
}
