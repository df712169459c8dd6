package worker

import (
	"fmt"

	"github.com/rs/zerolog"
)

// asynqLoggerAdapter wraps zerolog.Logger to implement the asynq.Logger interface
type asynqLoggerAdapter struct {
	logger zerolog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug().Msg(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info().Msg(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn().Msg(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
