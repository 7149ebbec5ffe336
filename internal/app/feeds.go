package app

import "sync"

// feedSet owns the live feeds behind one keying of a sync component and the
// goroutines pumping them into state slices. Rekeying cancels the previous
// key's feeds and waits for their pumps to drain before anything new opens,
// so a stale push can never land on top of freshly reset state.
type feedSet struct {
	mu      sync.Mutex
	closed  bool
	cancels []func()
	pumps   sync.WaitGroup
}

// rekey tears down the previous keying, then runs open to establish the next
// one. open receives an add callback tying each new feed to the set. After
// close, rekey still tears down but never opens.
func (f *feedSet) rekey(open func(add func(cancel func(), pump func()))) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = nil
	f.pumps.Wait()

	if f.closed {
		return
	}
	open(f.add)
}

func (f *feedSet) add(cancel func(), pump func()) {
	f.cancels = append(f.cancels, cancel)
	f.pumps.Add(1)
	go func() {
		defer f.pumps.Done()
		pump()
	}()
}

// close cancels whatever is open, drains the pumps, and blocks new keyings.
func (f *feedSet) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = nil
	f.pumps.Wait()
}
