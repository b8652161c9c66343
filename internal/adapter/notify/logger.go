package notify

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/cwygoda/fetchd/internal/domain"
)

// Logger is a notifier that writes messages to the process log, for
// running without a message relay configured.
type Logger struct {
	nextID atomic.Int64
}

// NewLogger creates a logging notifier.
func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Post(ctx context.Context, conversation int64, text string) (domain.MessageRef, error) {
	ref := domain.MessageRef(l.nextID.Add(1))
	log.Printf("notify [chat %d, msg %d]: %s", conversation, ref, text)
	return ref, nil
}

func (l *Logger) Edit(ctx context.Context, conversation int64, ref domain.MessageRef, text string) error {
	log.Printf("notify [chat %d, msg %d, edit]: %s", conversation, ref, text)
	return nil
}
