package models

import "time"

// Sender identifies who wrote a chat-log entry.
type Sender string

const (
	SenderApplicant Sender = "applicant"
	SenderBot       Sender = "bot"
)

// ChatLogEntry is one row of the append-only chat log. Display order is
// (Timestamp, Seq).
type ChatLogEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Sender    Sender    `json:"sender"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int       `json:"seq"`
}

// Button is an action attached to a bot message.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

// BotMessage is the wire shape returned to the chat client.
type BotMessage struct {
	Text        string      `json:"text"`
	Buttons     []Button    `json:"buttons,omitempty"`
	NextMessage *BotMessage `json:"nextMessage,omitempty"`
}

// Reply is the outbound side of one turn. Milestone transitions carry a
// Secondary that must be shown after Primary.
type Reply struct {
	Primary   BotMessage  `json:"primary"`
	Secondary *BotMessage `json:"secondary,omitempty"`
}

// Single wraps one message as a Reply.
func Single(msg BotMessage) Reply {
	return Reply{Primary: msg}
}

// Pair builds a milestone Reply.
func Pair(primary, secondary BotMessage) Reply {
	return Reply{Primary: primary, Secondary: &secondary}
}

// Messages returns the outbound messages in display order.
func (r Reply) Messages() []BotMessage {
	if r.Secondary == nil {
		return []BotMessage{r.Primary}
	}
	return []BotMessage{r.Primary, *r.Secondary}
}

// BotMessage flattens the pair into the chained wire shape.
func (r Reply) BotMessage() BotMessage {
	out := r.Primary
	if r.Secondary != nil {
		next := *r.Secondary
		out.NextMessage = &next
	}
	return out
}
