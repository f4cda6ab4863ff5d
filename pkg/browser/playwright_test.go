package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseWithinReturnsTeardownError(t *testing.T) {
	boom := errors.New("browser already gone")

	err := closeWithin(time.Second, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, closeWithin(time.Second, func() error { return nil }))
}

func TestCloseWithinGivesUpOnHungTeardown(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := closeWithin(100*time.Millisecond, func() error {
		<-release
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeadlineExceeded))
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}
