package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cwygoda/fetchd/internal/domain"
)

// Webhook posts progress text to a message-relay endpoint as JSON. The
// relay owns message identity on its side; locally assigned refs let the
// relay distinguish a fresh post from an edit of an earlier one.
type Webhook struct {
	url    string
	http   *http.Client
	nextID atomic.Int64
}

// NewWebhook creates a notifier targeting the given relay URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	Conversation int64  `json:"conversation"`
	MessageID    int64  `json:"message_id,omitempty"`
	Text         string `json:"text"`
}

// Post sends a new message to the relay.
func (w *Webhook) Post(ctx context.Context, conversation int64, text string) (domain.MessageRef, error) {
	ref := domain.MessageRef(w.nextID.Add(1))
	if err := w.send(ctx, message{Conversation: conversation, MessageID: int64(ref), Text: text}); err != nil {
		return 0, err
	}
	return ref, nil
}

// Edit replaces an earlier message's text. Failures are logged and
// swallowed; a relay rejecting an unchanged edit is a no-op, not an
// error worth surfacing.
func (w *Webhook) Edit(ctx context.Context, conversation int64, ref domain.MessageRef, text string) error {
	err := w.send(ctx, message{Conversation: conversation, MessageID: int64(ref), Text: text})
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "not modified") {
		log.Printf("notify: edit of message %d failed: %v", ref, err)
	}
	return nil
}

func (w *Webhook) send(ctx context.Context, m message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
