package app

// LockedRooms reports how many per-room locks are currently tracked.
func (d *Dispatcher) LockedRooms() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
