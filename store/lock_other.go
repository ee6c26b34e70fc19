//go:build !unix

package store

// dirLock is a no-op where flock is unavailable.
type dirLock struct{}

func lockDir(dir string) (*dirLock, error) {
	return &dirLock{}, nil
}

func (l *dirLock) unlock() error {
	return nil
}
