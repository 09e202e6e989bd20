// Package email defines the outbound message model used throughout the relay.
package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name    string
	Address string
}

// String formats the address for a message header, quoting the display name.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%q <%s>", a.Name, a.Address)
}

// Message represents an outbound email with all its components.
type Message struct {
	From      Address
	To        []Address
	ReplyTo   []Address
	Subject   string
	TextBody  string
	HTMLBody  string
	Date      time.Time
	MessageID string
}

// Recipients returns the bare envelope recipient addresses.
func (m *Message) Recipients() []string {
	rcpts := make([]string, 0, len(m.To))
	for _, to := range m.To {
		rcpts = append(rcpts, to.Address)
	}
	return rcpts
}

// NewMessageID returns a unique message id (without angle brackets) in the
// domain of the given sender address.
func NewMessageID(sender string) string {
	domain := "localhost"
	if at := strings.LastIndex(sender, "@"); at >= 0 && at < len(sender)-1 {
		domain = sender[at+1:]
	}
	return uuid.NewString() + "@" + domain
}
