package tcpbridge

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// backoffConfig mirrors the retry schedule used elsewhere in rouge's stream
// transports, capped to the bridge's 2s ceiling rather than the longer
// ceiling a media-streaming reconnect loop would use.
type backoffConfig struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func defaultBackoffConfig() backoffConfig {
	return backoffConfig{
		initialDelay: 50 * time.Millisecond,
		maxDelay:     2 * time.Second,
	}
}

// dialFunc attempts to establish one connection.
type dialFunc func(ctx context.Context) (netConn, error)

// netConn is the subset of net.Conn the reconnect loop and bridge need;
// kept narrow so tests can supply an in-memory fake.
type netConn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// runWithReconnect calls dial repeatedly with exponential backoff until it
// succeeds or ctx is cancelled, logging each failure. The successful
// connection is returned; the caller owns the retry-count reset.
func runWithReconnect(ctx context.Context, name string, dial dialFunc, cfg backoffConfig, reconnects *uint32, log *slog.Logger) (netConn, error) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		conn, err := dial(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("tcpbridge: reconnected", "name", name, "attempts", attempt)
			}
			return conn, nil
		}

		attempt++
		atomic.AddUint32(reconnects, 1)
		delay := calculateBackoff(attempt, cfg)
		log.Warn("tcpbridge: connect failed, retrying", "name", name, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// calculateBackoff doubles cfg.initialDelay per attempt, capped at
// cfg.maxDelay.
func calculateBackoff(attempt int, cfg backoffConfig) time.Duration {
	delay := cfg.initialDelay * time.Duration(uint64(1)<<uint(attempt-1))
	if delay > cfg.maxDelay || delay <= 0 {
		delay = cfg.maxDelay
	}
	return delay
}
