package pipeline

import "sync"

// pathLocks hands out one mutex per video path. The sequential queue makes
// this redundant today; it becomes load-bearing the moment files run in
// parallel or a watch run overlaps a manual one.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for path and returns its release func.
func (l *pathLocks) acquire(path string) func() {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
