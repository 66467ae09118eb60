package memory

import "time"

// SetLockClock replaces the clock used for lock expiry
func SetLockClock(m *Memory, now func() time.Time) {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()
	m.locker.now = now
}
