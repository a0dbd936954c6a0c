package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/evercatalog/catalog/pkg/models"
)

// EventFetcher resolves the event id carried in a NOTIFY payload back into
// its row, satisfied by *store.Store.GetEvent.
type EventFetcher func(ctx context.Context, id int64) (*models.CatalogEvent, error)

// Listener holds a dedicated LISTEN connection on Channel and dispatches
// each notified row to a Dispatcher. It is the sole goroutine that touches
// its pgx connection, mirroring the donor's NotifyListener — but with a
// single fixed channel there is no LISTEN/UNLISTEN command queue or
// per-channel generation counter to guard against races, since this
// process LISTENs exactly once, at Start, for its whole lifetime.
type Listener struct {
	connString string
	dispatcher *Dispatcher
	fetch      EventFetcher

	conn    *pgx.Conn
	running atomic.Bool

	cancelLoop context.CancelFunc
	loopDone   chan struct{}
}

// NewListener creates a Listener that LISTENs on Channel once started.
func NewListener(connString string, dispatcher *Dispatcher, fetch EventFetcher) *Listener {
	return &Listener{connString: connString, dispatcher: dispatcher, fetch: fetch}
}

// Start establishes the LISTEN connection and begins the receive loop. It
// returns once LISTEN has been issued; the loop itself runs in background
// goroutines until Stop is called or ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("events: connect for listen: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("events: listen %s: %w", Channel, err)
	}

	l.conn = conn
	l.running.Store(true)

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancelLoop = cancel
	l.loopDone = make(chan struct{})
	go func() {
		defer close(l.loopDone)
		l.receiveLoop(loopCtx)
	}()

	slog.Info("events: listener started", "channel", Channel)
	return nil
}

// Stop signals the receive loop to exit, waits for it to finish, then
// closes the LISTEN connection.
func (l *Listener) Stop(ctx context.Context) {
	l.running.Store(false)
	if l.cancelLoop != nil {
		l.cancelLoop()
	}
	if l.loopDone != nil {
		<-l.loopDone
	}
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
}

func (l *Listener) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		notification, err := l.conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				continue
			}
			slog.Error("events: notify receive error", "error", err)
			l.reconnect(ctx)
			continue
		}

		id, err := strconv.ParseInt(notification.Payload, 10, 64)
		if err != nil {
			slog.Warn("events: discarding malformed notify payload", "payload", notification.Payload, "error", err)
			continue
		}

		event, err := l.fetch(ctx, id)
		if err != nil {
			slog.Error("events: failed to fetch notified event", "event_id", id, "error", err)
			continue
		}
		l.dispatcher.Broadcast(*event)
	}
}

// reconnect attempts to re-establish the LISTEN connection with exponential
// backoff, matching the donor's NotifyListener.reconnect.
func (l *Listener) reconnect(ctx context.Context) {
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		conn, err := pgx.Connect(ctx, l.connString)
		if err != nil {
			slog.Error("events: listener reconnect failed", "error", err, "backoff", backoff)
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
			slog.Error("events: re-listen failed", "error", err)
			_ = conn.Close(ctx)
			backoff = min(backoff*2, 30*time.Second)
			continue
		}

		l.conn = conn
		slog.Info("events: listener reconnected")
		return
	}
}
