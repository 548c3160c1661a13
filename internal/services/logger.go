package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/balancer-sor/internal/domain"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the owning service id.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

func (l *ServiceLogger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *ServiceLogger) Error() *zerolog.Event { return l.logger.Error() }
func (l *ServiceLogger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *ServiceLogger) Debug() *zerolog.Event { return l.logger.Debug() }

// Quote scopes events to one routing request.
func (l *ServiceLogger) Quote(kind domain.SwapKind, tokenIn, tokenOut domain.Token) *zerolog.Logger {
	ql := l.logger.With().
		Str("swapKind", kind.String()).
		Str("tokenIn", tokenIn.Address.Hex()).
		Str("tokenOut", tokenOut.Address.Hex()).
		Logger()
	return &ql
}

// Refresh scopes events to one pool set refresh; a nil block means latest.
func (l *ServiceLogger) Refresh(block *uint64) *zerolog.Logger {
	ctx := l.logger.With()
	if block != nil {
		ctx = ctx.Uint64("block", *block)
	} else {
		ctx = ctx.Str("block", "latest")
	}
	rl := ctx.Logger()
	return &rl
}
