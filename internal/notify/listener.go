package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	channelName    = "orders_changed"
	reconnectDelay = 5 * time.Second
)

// Listener holds a dedicated connection on LISTEN orders_changed and
// republishes each notification onto the in-process bus. The notifications
// are produced by an AFTER INSERT/UPDATE/DELETE trigger on cafe.orders.
type Listener struct {
	db  *pgxpool.Pool
	bus *Bus
}

func NewListener(db *pgxpool.Pool, bus *Bus) *Listener {
	return &Listener{db: db, bus: bus}
}

// Run blocks until ctx is cancelled. A broken connection is re-acquired
// after a short delay; subscribers simply miss events in between, which
// costs them one redundant re-fetch at most.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Error().Err(err).Msg("notify: listener connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("notify: failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		return fmt.Errorf("notify: failed to LISTEN on %s: %w", channelName, err)
	}

	log.Info().Str("channel", channelName).Msg("notify: listening for order changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("notify: wait for notification: %w", err)
		}

		var ev ChangeEvent
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			log.Warn().Err(err).Str("payload", n.Payload).Msg("notify: dropping malformed notification payload")
			continue
		}

		l.bus.Publish(ev)
	}
}
