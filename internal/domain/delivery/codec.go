package delivery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
)

// Header keys set on queued entries
const (
	HeaderInstanceID = "instance_id"
	HeaderPrincipal  = "principal"
)

// NewEntry encodes msg into a queue entry
func NewEntry(msg gs1.Message) (*Entry, error) {
	if _, err := msg.Body(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Kind, err)
	}
	return &Entry{
		ID:         uuid.New(),
		Kind:       msg.Kind,
		Body:       body,
		Headers:    map[string]string{HeaderInstanceID: msg.InstanceID()},
		EnqueuedAt: time.Now(),
	}, nil
}

// DecodeEntry decodes the message carried by an entry
func DecodeEntry(e *Entry) (gs1.Message, error) {
	var msg gs1.Message
	if err := json.Unmarshal(e.Body, &msg); err != nil {
		return gs1.Message{}, shared.ErrValidation.WithTarget("entry " + e.ID.String()).WithCause(err)
	}
	if msg.Kind != e.Kind {
		return gs1.Message{}, shared.ErrValidation.WithTarget("entry " + e.ID.String()).
			WithCause(fmt.Errorf("entry kind %q does not match body kind %q", e.Kind, msg.Kind))
	}
	if _, err := msg.Body(); err != nil {
		return gs1.Message{}, err
	}
	return msg, nil
}

// CloneForQueue copies an entry verbatim for another queue
func CloneForQueue(e *Entry, queue string) *Entry {
	headers := make(map[string]string, len(e.Headers))
	for k, v := range e.Headers {
		headers[k] = v
	}
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	return &Entry{
		ID:         e.ID,
		Queue:      queue,
		Kind:       e.Kind,
		Body:       body,
		Headers:    headers,
		EnqueuedAt: time.Now(),
		LastError:  e.LastError,
	}
}
