package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher emits audit events for harmonization and sync activity over NATS.
// It is optional: a nil Publisher is safe to call and publishes nothing, so
// the service runs without a broker in development.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS. An empty URL returns a nil publisher.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("catalog-harmonization-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "events.publisher"),
	}, nil
}

type event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func (p *Publisher) publish(subject, eventType string, data map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	payload, err := json.Marshal(event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		p.logger.WithError(err).Warn("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// PublishStepApplied emits a harmonization step run
func (p *Publisher) PublishStepApplied(stepID string, logID uint, recordsUpdated int) {
	p.publish("harmonization.step.applied", "step_applied", map[string]interface{}{
		"step_id":         stepID,
		"log_id":          logID,
		"records_updated": recordsUpdated,
	})
}

// PublishLogReverted emits an undo or redo of a log entry
func (p *Publisher) PublishLogReverted(logID uint, action string, recordsRestored int) {
	p.publish("harmonization.log.reverted", "log_"+action, map[string]interface{}{
		"log_id":           logID,
		"action":           action,
		"records_restored": recordsRestored,
	})
}

// PublishSyncCompleted emits a finished store pull
func (p *Publisher) PublishSyncCompleted(storeID uint, newMappings, newQueueItems int) {
	p.publish("sync.pull.completed", "sync_completed", map[string]interface{}{
		"store_id":        storeID,
		"new_mappings":    newMappings,
		"new_queue_items": newQueueItems,
	})
}

// PublishQueueResolved emits a review decision on a queue item
func (p *Publisher) PublishQueueResolved(itemID uint, status string) {
	p.publish("sync.queue.resolved", "queue_resolved", map[string]interface{}{
		"item_id": itemID,
		"status":  status,
	})
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close drains the connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
