package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/contactbook/apiserver/types"
)

const (
	attrEventType = "type"
	attrEventID   = "event_id"
	attrContactID = "contact_id"
)

// ContactEvents publishes and consumes contact lifecycle events on one channel.
type ContactEvents struct {
	backend Backend
	channel string
}

func NewContactEvents(backend Backend, channel string) (*ContactEvents, error) {
	if backend == nil {
		return nil, errors.New("events backend is required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("events channel is required")
	}
	return &ContactEvents{backend: backend, channel: channel}, nil
}

// PublishContactEvent encodes event as JSON and sends it with routing attributes.
func (e *ContactEvents) PublishContactEvent(ctx context.Context, event types.ContactEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode contact event: %w", err)
	}

	attrs := map[string]string{
		attrEventType: event.Type,
		attrEventID:   event.ID,
		attrContactID: strconv.FormatInt(event.Contact.ID, 10),
	}
	if _, err := e.backend.Publish(ctx, e.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Watch delivers decoded events to fn until ctx is done.
// Payloads that are not contact events are acknowledged and skipped.
func (e *ContactEvents) Watch(ctx context.Context, fn func(ctx context.Context, event types.ContactEvent) error) error {
	return e.backend.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		var event types.ContactEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil || event.Type == "" {
			return nil
		}
		return fn(ctx, event)
	})
}

func (e *ContactEvents) Channel() string {
	return e.channel
}

func (e *ContactEvents) Close() error {
	return e.backend.Close()
}
