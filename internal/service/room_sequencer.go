package service

import "sync"

// roomSequencer hands out one mutex per room. Entries are dropped once no
// goroutine holds or waits for them.
type roomSequencer struct {
	mu    sync.Mutex
	rooms map[string]*roomSlot
}

type roomSlot struct {
	mu   sync.Mutex
	refs int
}

func newRoomSequencer() *roomSequencer {
	return &roomSequencer{rooms: make(map[string]*roomSlot)}
}

// lock blocks until the caller owns roomID and returns the release func.
func (s *roomSequencer) lock(roomID string) func() {
	s.mu.Lock()
	slot, ok := s.rooms[roomID]
	if !ok {
		slot = &roomSlot{}
		s.rooms[roomID] = slot
	}
	slot.refs++
	s.mu.Unlock()

	slot.mu.Lock()
	return func() {
		slot.mu.Unlock()

		s.mu.Lock()
		slot.refs--
		if slot.refs == 0 {
			delete(s.rooms, roomID)
		}
		s.mu.Unlock()
	}
}

func (s *roomSequencer) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
