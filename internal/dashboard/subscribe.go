package dashboard

// Subscribe returns a channel that receives the screen after every change,
// starting with the current one. Slow readers only ever see the latest
// screen. Call cancel to unsubscribe.
func (a *App) Subscribe() (updates <-chan Screen, cancel func()) {
	ch := make(chan Screen, 1)
	a.mu.Lock()
	a.subs[ch] = struct{}{}
	ch <- a.screen
	a.mu.Unlock()

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.subs[ch]; ok {
			delete(a.subs, ch)
			close(ch)
		}
	}
}

// publishLocked offers the screen to every subscriber without blocking,
// replacing an unread value. Caller holds a.mu.
func (a *App) publishLocked() {
	s := a.screen
	for ch := range a.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
