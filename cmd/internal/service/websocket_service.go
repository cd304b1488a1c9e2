package service

import (
	"context"
	"errors"
	"time"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/events"
	"circlenotes/cmd/internal/infrastructure/aws/websocket"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/gommon/log"
)

const killGracePeriod = 200 * time.Millisecond

type ConnectionRepository interface {
	Save(ctx context.Context, conn *entity.Connection) error
	Delete(ctx context.Context, connID string) error
	FindByUserID(ctx context.Context, userID int64) ([]string, error)
	FindStale(ctx context.Context, now int64, hbLimit int64) ([]*entity.Connection, error)
	UpdateHeartbeat(ctx context.Context, connID string, now int64) error
}

// Notifier delivers realtime events to the open sessions of a user.
type Notifier interface {
	Dispatch(ctx context.Context, userID int64, evt events.SocketEvent)
}

type WebSocketService struct {
	ConnRepo ConnectionRepository
	Gateway  websocket.GatewayClient
}

func NewWebSocketService(repo ConnectionRepository, gateway websocket.GatewayClient) *WebSocketService {
	return &WebSocketService{
		ConnRepo: repo,
		Gateway:  gateway,
	}
}

func (s *WebSocketService) RegisterConnection(ctx context.Context, userID int64, connectionID string, exp int64) apierror.ErrorResponse {
	now := utils.NowUTC()
	conn := &entity.Connection{
		ConnectionID:    connectionID,
		UserID:          userID,
		ExpiresAt:       exp * 1000, // "exp" is stored in seconds, our app uses millis
		LastHeartbeatAt: now,        // Avoid users getting disconnected immediately
		CreatedAt:       now,
	}

	if err := s.ConnRepo.Save(ctx, conn); err != nil {
		log.Errorf("failed to save connection: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

func (s *WebSocketService) RemoveConnection(ctx context.Context, connectionID string) {
	// We don't return error here because if it fails, it's not the client's fault
	_ = s.ConnRepo.Delete(ctx, connectionID)
}

func (s *WebSocketService) HandleMessage(ctx context.Context, msg *contract.IncomingSocketMessage, connID string) {
	switch msg.Type {
	case contract.EventPing:
		s.handlePing(ctx, connID)
	}
}

// Dispatch wraps evt and sends it to every connection of the user. A stale
// connection is dropped without blocking the others.
func (s *WebSocketService) Dispatch(ctx context.Context, userID int64, evt events.SocketEvent) {
	conns, err := s.ConnRepo.FindByUserID(ctx, userID)
	if err != nil {
		log.Errorf("failed to fetch connections for user %d: %v", userID, err)
		return
	}

	envelope := &contract.OutgoingSocketMessage{
		Type: evt.GetType(),
		Data: evt,
	}

	for _, connID := range conns {
		s.post(ctx, connID, envelope)
	}
}

// TerminateUserConnections sends a "poison pill" message and then disconnects
func (s *WebSocketService) TerminateUserConnections(ctx context.Context, userID int64, ck *events.ConnectionKill) {
	conns, err := s.ConnRepo.FindByUserID(ctx, userID)
	if err != nil {
		log.Errorf("failed to fetch connections for user %d: %v", userID, err)
		return
	}

	msg := &contract.OutgoingSocketMessage{
		Type: ck.GetType(),
		Data: ck,
	}

	for _, connID := range conns {
		s.post(ctx, connID, msg)

		go func(cid string) {
			time.Sleep(killGracePeriod)
			s.Close(context.Background(), cid)
		}(connID)
	}
}

// Close drops the connection on the gateway and forgets it.
func (s *WebSocketService) Close(ctx context.Context, connID string) {
	if err := s.Gateway.DeleteConnection(ctx, connID); err != nil && !errors.Is(err, websocket.ErrGone) {
		log.Warnf("failed to close connection %s: %v", connID, err)
	}
	_ = s.ConnRepo.Delete(ctx, connID)
}

// SweepStale expires sessions past their token expiry or heartbeat window
// and returns how many were closed.
func (s *WebSocketService) SweepStale(ctx context.Context) (int, error) {
	now := utils.NowUTC()
	conns, err := s.ConnRepo.FindStale(ctx, now, entity.HeartbeatPeriodMillis+entity.HeartbeatToleranceMillis)
	if err != nil {
		return 0, err
	}

	envelope := &contract.OutgoingSocketMessage{Type: contract.EventSessionExpired}
	for _, conn := range conns {
		s.post(ctx, conn.ConnectionID, envelope)
		s.Close(ctx, conn.ConnectionID)
	}
	return len(conns), nil
}

func (s *WebSocketService) post(ctx context.Context, connID string, msg *contract.OutgoingSocketMessage) {
	err := s.Gateway.PostToConnection(ctx, connID, msg)
	if errors.Is(err, websocket.ErrGone) {
		// Usually means user disconnected already
		_ = s.ConnRepo.Delete(ctx, connID)
		return
	}

	if err != nil {
		log.Warnf("failed to push to connection %s: %v", connID, err)
	}
}

func (s *WebSocketService) handlePing(ctx context.Context, connID string) {
	if err := s.ConnRepo.UpdateHeartbeat(ctx, connID, utils.NowUTC()); err != nil {
		log.Errorf("failed to update heartbeat: %v", err)
		return
	}
	s.post(ctx, connID, &contract.OutgoingSocketMessage{Type: contract.EventAck})
}
