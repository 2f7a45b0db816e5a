// Package filelock implements the advisory exclusive lock a storage Writer
// holds on a sidecar "<target>.lock" file: try-once, blocking, and
// timeout/polling acquisition, all built on flock(2).
package filelock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/brecio/brec"
)

const (
	lockFilePerm     = 0o600
	pollBackoffStart = time.Millisecond
)

// Lock represents a held exclusive lock. Call Close to release it.
type Lock struct {
	file *os.File
}

// Close releases the lock and closes the underlying file descriptor. Close
// is idempotent.
func (l *Lock) Close() error {
	if l.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return fmt.Errorf("brec: unlocking lock file: %w", unlockErr)
	}

	if closeErr != nil {
		return fmt.Errorf("brec: closing lock file: %w", closeErr)
	}

	return nil
}

// SidecarPath returns the lock sidecar path for a storage file at target.
func SidecarPath(target string) string {
	return target + ".lock"
}

// Acquire locks the sidecar file for target.
//
//   - timeout == 0: try once; on contention return ErrFileIsLocked
//     immediately.
//   - timeout > 0: retry every interval (1ms if interval is not positive)
//     until the lock is acquired or timeout elapses, then return
//     ErrTimeoutToWaitLockedFile.
//
// If target exists and is not a regular file, Acquire fails with
// ErrPathIsNotFile before touching the lock.
func Acquire(target string, timeout, interval time.Duration) (*Lock, error) {
	if interval <= 0 {
		interval = pollBackoffStart
	}

	if info, err := os.Stat(target); err == nil && !info.Mode().IsRegular() {
		return nil, brec.ErrPathIsNotFile
	}

	path := SidecarPath(target)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm)
		if err != nil {
			return nil, fmt.Errorf("%w: opening lock file: %v", brec.ErrFailToLockFile, err)
		}

		lockErr := flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if lockErr == nil {
			return &Lock{file: file}, nil
		}

		_ = file.Close()

		if !isWouldBlock(lockErr) {
			return nil, fmt.Errorf("%w: %v", brec.ErrFailToLockFile, lockErr)
		}

		if timeout == 0 {
			return nil, brec.ErrFileIsLocked
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, brec.ErrTimeoutToWaitLockedFile
		}

		sleep := interval
		if sleep > remaining {
			sleep = remaining
		}

		time.Sleep(sleep)
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// flockRetryEINTR wraps unix.Flock, retrying on EINTR: a signal can
// interrupt the syscall before it completes without the lock attempt
// itself having failed.
func flockRetryEINTR(fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error

	for range maxEINTRRetries {
		err = unix.Flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
