/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package natsutil publishes cellradar events to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

const (
	eventSource           = "cellradar/mcp-server"
	commandEventType      = "com.carverauto.cellradar.command.result"
	availabilityEventType = "com.carverauto.cellradar.availability.report"
)

// CloudEvent is the CloudEvents 1.0 JSON envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}

// CommandEventData is the payload of a command result event.
type CommandEventData struct {
	Operation string               `json:"operation"`
	Result    models.CommandResult `json:"result"`
}

// JetStreamPublisher is the part of jetstream.JetStream used for publishing.
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes CloudEvents under a subject prefix.
type EventPublisher struct {
	js     JetStreamPublisher
	prefix string
	logger logger.Logger
	now    func() time.Time
}

// NewEventPublisher creates an EventPublisher publishing below prefix.
func NewEventPublisher(js JetStreamPublisher, prefix string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: log,
		now:    time.Now,
	}
}

// CommandSubject is the subject command results of operation are published on.
func (p *EventPublisher) CommandSubject(operation string) string {
	return p.prefix + ".command." + operation
}

// AvailabilitySubject is the subject availability reports are published on.
func (p *EventPublisher) AvailabilitySubject() string {
	return p.prefix + ".availability"
}

// PublishCommandResult publishes the outcome of a dispatched command.
func (p *EventPublisher) PublishCommandResult(ctx context.Context, operation string, result *models.CommandResult) error {
	return p.publish(ctx, p.CommandSubject(operation), commandEventType, CommandEventData{
		Operation: operation,
		Result:    *result,
	})
}

// PublishAvailabilityReport publishes a fleet availability report.
func (p *EventPublisher) PublishAvailabilityReport(ctx context.Context, report *models.AvailabilityReport) error {
	return p.publish(ctx, p.AvailabilitySubject(), availabilityEventType, report)
}

func (p *EventPublisher) publish(ctx context.Context, subject, eventType string, data interface{}) error {
	now := p.now().UTC()

	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &now,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// CreateEventPublisher creates an EventPublisher for an existing connection,
// creating the stream or extending its subjects so prefix.> is captured.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, streamName, prefix string, log logger.Logger) (*EventPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, streamName, strings.TrimSuffix(prefix, ".")+".>"); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, prefix, log), nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, streamName, subject string) error {
	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
		}

		if _, err := js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return nil
	}

	cfg := stream.CachedInfo().Config

	subjects := ensureSubjectList(cfg.Subjects, subject)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, streamName, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS token
// wildcards; a literal pattern equal to subject also matches.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, tok := range pTokens {
		if tok == ">" {
			return len(sTokens) > i
		}

		if i >= len(sTokens) {
			return false
		}

		switch s := sTokens[i]; {
		case s == ">":
			return false
		case tok == "*":
			continue
		case s == "*" || tok != s:
			return false
		}
	}

	return len(pTokens) == len(sTokens)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
