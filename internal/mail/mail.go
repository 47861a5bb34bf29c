package mail

import (
	"context"
	"fmt"
	"log"
	"sync"

	"shop-backend/internal/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer dispatches outgoing messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer selected by cfg.Driver.
func New(cfg config.MailConfig) (Mailer, error) {
	switch cfg.Driver {
	case "", "log":
		return &LogMailer{From: cfg.From}, nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
}

// LogMailer writes messages to the process log instead of delivering them.
type LogMailer struct {
	From string
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.From
	}
	log.Printf("MAIL: from=%s to=%s subject=%q\n%s", msg.From, msg.To, msg.Subject, msg.Body)
	return nil
}

// Recorder keeps sent messages in memory. Tests read them back to follow
// verification links.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of every message recorded so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}
