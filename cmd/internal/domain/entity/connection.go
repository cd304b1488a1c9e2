package entity

import "time"

const (
	HeartbeatPeriod    = 60 * time.Second
	HeartbeatTolerance = 10 * time.Second

	HeartbeatPeriodMillis    = int64(60 * 1000)
	HeartbeatToleranceMillis = int64(10 * 1000)
)

// Connection is an open realtime session of a user on the websocket gateway.
type Connection struct {
	ConnectionID    string `gorm:"primaryKey;autoIncrement:false"`
	UserID          int64  `gorm:"not null;index"`
	ExpiresAt       int64  `gorm:"not null"`
	LastHeartbeatAt int64  `gorm:"not null;index"`
	CreatedAt       int64  `gorm:"not null;autoCreateTime:false"`
}

// IsStale reports whether the connection missed its heartbeat window at now.
func (c *Connection) IsStale(now int64) bool {
	return now-c.LastHeartbeatAt > HeartbeatPeriodMillis+HeartbeatToleranceMillis
}
