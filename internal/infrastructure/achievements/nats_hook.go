package achievements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
	"github.com/mediakeep/mediakeep/pkg/interfaces"
)

// envelope wraps a change set with transport metadata.
type envelope struct {
	ID         string                `json:"id"`
	ProfileID  int64                 `json:"profile_id"`
	Changes    []domain.StatusChange `json:"changes"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// NatsHook forwards committed status changes to the achievement service
// over NATS. Delivery is fire-and-forget; the caller treats failures as
// non-fatal.
type NatsHook struct {
	conn    *nats.Conn
	subject string
	logger  interfaces.Logger
}

// NewNatsHook connects to NATS and returns a hook publishing on subject.
func NewNatsHook(url, subject string, logger interfaces.Logger) (*NatsHook, error) {
	conn, err := nats.Connect(url,
		nats.Name("mediakeep-watchstatus"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", interfaces.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", interfaces.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsHook{conn: conn, subject: subject, logger: logger}, nil
}

// OnStatusChanges publishes the change set for achievement evaluation.
func (h *NatsHook) OnStatusChanges(ctx context.Context, profileID int64, changes []domain.StatusChange) error {
	if len(changes) == 0 {
		return nil
	}

	data, err := json.Marshal(envelope{
		ID:         uuid.New().String(),
		ProfileID:  profileID,
		Changes:    changes,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change set: %w", err)
	}

	if err := h.conn.Publish(h.subject, data); err != nil {
		return fmt.Errorf("failed to publish change set: %w", err)
	}

	h.logger.Debug("status changes forwarded",
		interfaces.Int64("profile_id", profileID),
		interfaces.Int("changes", len(changes)),
		interfaces.String("subject", h.subject))
	return nil
}

// Close drains the connection.
func (h *NatsHook) Close() {
	if h.conn != nil && !h.conn.IsClosed() {
		_ = h.conn.Drain()
	}
}
