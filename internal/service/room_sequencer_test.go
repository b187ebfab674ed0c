package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomSequencer_SerializesSameRoom(t *testing.T) {
	s := newRoomSequencer()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.lock("g1")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, s.size())
}

func TestRoomSequencer_RoomsAreIndependent(t *testing.T) {
	s := newRoomSequencer()
	unlockA := s.lock("g1")

	done := make(chan struct{})
	go func() {
		unlockB := s.lock("g2")
		unlockB()
		close(done)
	}()
	<-done

	assert.Equal(t, 1, s.size())
	unlockA()
	assert.Equal(t, 0, s.size())
}
