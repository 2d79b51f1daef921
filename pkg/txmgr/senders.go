package txmgr

import (
	"sync"

	"github.com/0xsequence/ethkit/go-ethereum/common"
)

// senderLocks serializes resolve-nonce -> sign -> submit per sender
// address. Two concurrent requests from the same sender would otherwise
// race on nonce resolution and produce two transactions with the same
// nonce, of which the chain accepts only one.
type senderLocks struct {
	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex
}

func newSenderLocks() *senderLocks {
	return &senderLocks{
		locks: make(map[common.Address]*sync.Mutex),
	}
}

// lock acquires the sender's mutex and returns its unlock function. The
// critical section must not span the confirmation wait.
func (s *senderLocks) lock(sender common.Address) func() {
	s.mu.Lock()

	l, ok := s.locks[sender]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sender] = l
	}

	s.mu.Unlock()

	l.Lock()

	return l.Unlock
}
