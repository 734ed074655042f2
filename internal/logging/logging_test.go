package logging

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizboard-service/internal/app"
)

func TestConfigure(t *testing.T) {
	logger := logrus.New()

	configure(logger, "DEBUG", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	configure(logger, "bogus", "")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.FullTimestamp)
}

func TestDisconnectSinkScheduled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewDisconnectSink(logger)

	sink.RecordDisconnect(app.DisconnectRecord{
		ConnectionID: "c1",
		StudentID:    "s1",
		Name:         "Ada",
		Reason:       "transport close",
		Action:       app.DisconnectScheduled,
		Grace:        15 * time.Second,
	})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "s1", entry.Data["student"])
	assert.Equal(t, "15s", entry.Data["grace"])
	assert.Equal(t, app.DisconnectScheduled, entry.Data["action"])
}

func TestDisconnectSinkUnboundIsDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	sink := NewDisconnectSink(logger)

	sink.RecordDisconnect(app.DisconnectRecord{ConnectionID: "c9", Action: app.DisconnectUnbound})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	_, hasStudent := entry.Data["student"]
	assert.False(t, hasStudent)
}
