package jobs

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

const cleanerInterval = time.Minute

type ConnectionSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// ConnectionCleaner closes realtime sessions that stopped sending
// heartbeats or outlived their token.
type ConnectionCleaner struct {
	sweeper  ConnectionSweeper
	interval time.Duration
}

func NewConnectionCleaner(sweeper ConnectionSweeper) *ConnectionCleaner {
	return &ConnectionCleaner{sweeper: sweeper, interval: cleanerInterval}
}

func (c *ConnectionCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Info("Connection cleaner started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping connection cleaner...")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ConnectionCleaner) cleanup(ctx context.Context) {
	closed, err := c.sweeper.SweepStale(ctx)
	if err != nil {
		log.Errorf("Cleaner: failed to sweep stale connections: %v", err)
		return
	}

	if closed > 0 {
		log.Infof("Cleaner: closed %d stale connections", closed)
	}
}
