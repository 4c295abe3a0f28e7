package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// redisLogger routes go-redis internal messages (reconnects, pool errors)
// through zap
type redisLogger struct {
	logger *zap.Logger
}

func newRedisLogger(logger *zap.Logger) *redisLogger {
	return &redisLogger{logger: logger.Named("redis")}
}

// Printf implements the go-redis logging interface
func (l *redisLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	l.logger.Warn(msg)
}
