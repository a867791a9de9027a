package audio

import "sync"

// Keeper tracks the streams held by parked workers. In normal execution
// nothing is ever dropped: the streams live until the process exits.
type Keeper struct {
	mu      sync.Mutex
	streams []Stream
}

func NewKeeper() *Keeper {
	return &Keeper{}
}

func (k *Keeper) Hold(s Stream) {
	k.mu.Lock()
	k.streams = append(k.streams, s)
	k.mu.Unlock()
}

// Drop forgets s. The owning worker calls it on teardown before it
// releases the stream itself.
func (k *Keeper) Drop(s Stream) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, held := range k.streams {
		if held == s {
			k.streams = append(k.streams[:i], k.streams[i+1:]...)
			return
		}
	}
}

func (k *Keeper) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.streams)
}
