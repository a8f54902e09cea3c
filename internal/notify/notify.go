// Package notify hands outbound emails to the mail worker through kafka.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
)

const (
	KindVerifyEmail       = "verify_email"
	KindResetPassword     = "reset_password"
	KindOrderConfirmation = "order_confirmation"
)

var ErrNoRecipient = errors.New("notify: recipient address required")

type Message struct {
	Kind      string         `json:"kind"`
	To        string         `json:"to"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type KafkaSender struct {
	Publisher Publisher
}

func (s *KafkaSender) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return s.Publisher.PublishEvent(ctx, mykafka.TopicNotifications, m.To, m)
}

func VerifyEmail(to, name, link string) Message {
	return Message{Kind: KindVerifyEmail, To: to, Name: name, Data: map[string]any{"link": link}}
}

func ResetPassword(to, name, link string) Message {
	return Message{Kind: KindResetPassword, To: to, Name: name, Data: map[string]any{"link": link}}
}

func OrderConfirmation(to, name string, data map[string]any) Message {
	return Message{Kind: KindOrderConfirmation, To: to, Name: name, Data: data}
}
