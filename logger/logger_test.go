package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/warp/ctr-mapper/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("chatty"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
}

func TestNew_Level(t *testing.T) {
	log := logger.New("error", logger.FormatJSON)
	assert.Equal(t, zerolog.ErrorLevel, log.GetLevel())
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	log := logger.FromContext(ctx)
	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestFromContext_Default(t *testing.T) {
	log := logger.FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.WithFields(logger.NewWithWriter(buf), map[string]any{"job_id": "abc"})

	log.Info().Msg("started")

	assert.Contains(t, buf.String(), `"job_id":"abc"`)
	assert.Contains(t, buf.String(), "started")
}
