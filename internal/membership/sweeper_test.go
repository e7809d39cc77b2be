package membership

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeperFiresRepeatedly(t *testing.T) {
	var count int32
	s := NewSweeper(5*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count) >= 3 }, time.Second, time.Millisecond)
}

func TestSweeperStopPreventsFurtherFires(t *testing.T) {
	var count int32
	s := NewSweeper(5*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count) >= 1 }, time.Second, time.Millisecond)

	s.Stop()
	after := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&count), after+1, "no fires should occur after Stop")
}

func TestSweeperNeverOverlaps(t *testing.T) {
	var running int32
	var overlapped int32
	s := NewSweeper(time.Millisecond, func() {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			atomic.AddInt32(&overlapped, 1)
			return
		}
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&running, 0)
	})
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Zero(t, atomic.LoadInt32(&overlapped), "self-rearming timer must not let sweeps overlap")
}
