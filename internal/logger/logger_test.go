package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}

func TestOperation(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx, done := Operation(context.Background(), base, "catalog.delete", "memory")
	require.NotNil(t, zerolog.Ctx(ctx))
	done(nil)
	require.Contains(t, buf.String(), `"operation":"catalog.delete"`)
	require.Contains(t, buf.String(), "operation completed")

	buf.Reset()
	_, done = Operation(context.Background(), base, "catalog.delete", "memory")
	done(errors.New("protected"))
	require.Contains(t, buf.String(), `"level":"error"`)
	require.Contains(t, buf.String(), "protected")
}
