package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoDismiss(t *testing.T) {
	c := NewCenter(nil)
	c.after = 20 * time.Millisecond

	c.Show(Success, "Photo uploaded")
	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "Photo uploaded", n.Message)

	assert.Eventually(t, func() bool {
		_, ok := c.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNewerMessageSurvivesOlderTimer(t *testing.T) {
	c := NewCenter(nil)
	c.after = 40 * time.Millisecond

	c.Show(Info, "first")
	time.Sleep(25 * time.Millisecond)
	c.Show(Error, "second")
	time.Sleep(25 * time.Millisecond)

	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", n.Message)
	assert.Equal(t, Error, n.Kind)
}

func TestDismissAndCallback(t *testing.T) {
	var seen []string
	c := NewCenter(func(n Notification) { seen = append(seen, n.Message) })
	c.Show(Info, "hello")
	c.Dismiss()
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, []string{"hello"}, seen)
}
