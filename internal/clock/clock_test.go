package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceRunsDueTimersInOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var got []string

	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(5*time.Second, func() { got = append(got, "c") })
	assert.Equal(t, 3, c.Pending())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, time.Unix(0, 0).Add(2500*time.Millisecond), c.Now())
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop(), "second stop reports false")

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_StopAfterFire(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tm := c.AfterFunc(0, func() {})
	c.Advance(0)
	assert.False(t, tm.Stop())
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer did not fire")
	}
}
