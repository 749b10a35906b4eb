/*
 * Copyright 2025 tomoncle.
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

// Package analytics publishes short-url access events to an AMQP queue.
// Publishing is fire-and-forget: a broker outage never fails a resolution.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AccessEvent records one stat-tracking resolution of a short code.
type AccessEvent struct {
	ShortCode string    `json:"shortCode"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends access events to a durable AMQP queue. A nil *Publisher is
// valid and drops every event, so callers need no enabled-or-not branching.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *slog.Logger
}

// NewPublisher connects to the broker and declares the durable queue.
func NewPublisher(url, queue string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	return &Publisher{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// Publish emits an access event for the given short code. Failures are
// logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, shortCode string) {
	if p == nil {
		return
	}

	body, err := json.Marshal(AccessEvent{ShortCode: shortCode, Timestamp: time.Now().UTC()})
	if err != nil {
		p.log.Error("Failed to encode access event", "shortCode", shortCode, "error", err)
		return
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Error("Failed to publish access event", "shortCode", shortCode, "error", err)
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
