package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobsInOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher("ordered", 1, 16, time.Second, logger)

	var mu sync.Mutex
	var seen []int
	for i := 0; i < 10; i++ {
		i := i
		require.True(t, d.Submit("job", func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, i)
			return nil
		}))
	}
	d.Close()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
	assert.False(t, d.Submit("late", func(context.Context) error { return nil }))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewDispatcher("tiny", 1, 1, time.Second, logger)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, d.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, d.Submit("queued", func(context.Context) error { return nil }))

	assert.False(t, d.Submit("dropped", func(context.Context) error { return nil }))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "dropped", entry.Data["op"])

	close(release)
	d.Close()
}

func TestDispatcherLogsErrorsAndPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewInlineDispatcher("inline", logger)

	assert.True(t, d.Submit("fails", func(context.Context) error { return errors.New("boom") }))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "fails", entry.Data["op"])
	assert.Equal(t, "inline", entry.Data["dispatcher"])

	assert.True(t, d.Submit("panics", func(context.Context) error { panic("oops") }))
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "panics", entry.Data["op"])
}

func TestDispatcherNilSafe(t *testing.T) {
	var d *Dispatcher
	assert.False(t, d.Submit("noop", func(context.Context) error { return nil }))
	d.Close()
}
