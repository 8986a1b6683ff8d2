package websocket

import (
	"market-chat/pkg/logger"

	"go.uber.org/zap"
)

// Logger provides structured logging for socket events.
type Logger struct {
	logger *zap.Logger
}

func NewLogger() *Logger {
	return &Logger{
		logger: logger.Component("websocket"),
	}
}

func (l *Logger) Info(event string, userID uint, clientID string, fields ...zap.Field) {
	l.logger.Info("websocket_event", l.fields(event, userID, clientID, fields)...)
}

func (l *Logger) Warn(event string, userID uint, clientID string, fields ...zap.Field) {
	l.logger.Warn("websocket_warning", l.fields(event, userID, clientID, fields)...)
}

func (l *Logger) Error(event string, userID uint, clientID string, err error, fields ...zap.Field) {
	l.logger.Error("websocket_error", l.fields(event, userID, clientID, append(fields, zap.Error(err)))...)
}

func (l *Logger) fields(event string, userID uint, clientID string, extra []zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("event", event),
		zap.Uint("user_id", userID),
		zap.String("client_id", clientID),
	}, extra...)
}
