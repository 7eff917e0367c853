package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher is the subset of *nats.Conn the outbox needs.
type Publisher interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// NATSOutbox publishes invitations for an external mailer service.
// A message counts as delivered once the server has acknowledged the flush.
type NATSOutbox struct {
	conn    Publisher
	subject string
}

func NewNATSOutbox(conn Publisher, subject string) *NATSOutbox {
	return &NATSOutbox{conn: conn, subject: subject}
}

type outboxEvent struct {
	Type string `json:"type"`
	Message
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

const eventVerificationRequested = "verification.requested"

func (o *NATSOutbox) Send(ctx context.Context, msg Message) Result {
	html, err := RenderBody(msg)
	if err != nil {
		return failed("render email: %v", err)
	}
	data, err := json.Marshal(outboxEvent{Type: eventVerificationRequested, Message: msg, Subject: subject, HTML: html})
	if err != nil {
		return failed("encode event: %v", err)
	}
	if err := o.conn.Publish(o.subject, data); err != nil {
		return failed("nats publish: %v", err)
	}

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return failed("nats flush: %v", context.DeadlineExceeded)
	}
	if err := o.conn.FlushTimeout(timeout); err != nil {
		return failed("nats flush: %v", err)
	}
	return Result{Delivered: true}
}
