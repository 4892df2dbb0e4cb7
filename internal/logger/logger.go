package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Operation attaches a logger carrying the operation name and store backend
// to ctx and returns a func that logs the outcome and duration once the
// operation completes.
func Operation(ctx context.Context, logger zerolog.Logger, name, backend string) (context.Context, func(error)) {
	started := time.Now()

	ctx = logger.With().
		Str("operation", name).
		Str("store", backend).
		Logger().WithContext(ctx)

	return ctx, func(err error) {
		if err != nil {
			zerolog.Ctx(ctx).Error().
				Err(err).
				Dur("duration", time.Since(started)).
				Msg("operation failed")
			return
		}

		zerolog.Ctx(ctx).Info().
			Dur("duration", time.Since(started)).
			Msg("operation completed")
	}
}
