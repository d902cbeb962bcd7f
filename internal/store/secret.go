package store

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// secretBuffer holds sensitive plaintext in a page-locked allocation so it
// cannot be swapped to disk. Callers must Release it; the buffer is zeroed
// before the lock is dropped.
type secretBuffer struct {
	data   []byte
	locked bool
}

// newSecretBuffer allocates a locked buffer of the given size. If mlock is
// unavailable (RLIMIT_MEMLOCK, unprivileged containers), the buffer still
// works but is not swap-protected.
func newSecretBuffer(size int) *secretBuffer {
	b := &secretBuffer{data: make([]byte, size)}
	if size > 0 {
		if err := unix.Mlock(b.data); err == nil {
			b.locked = true
		}
	}
	return b
}

// Release zeroes the buffer and drops the page lock. Safe to call more
// than once.
func (b *secretBuffer) Release() {
	if b.data == nil {
		return
	}
	for i := range b.data {
		b.data[i] = 0
	}
	if b.locked {
		_ = unix.Munlock(b.data)
		b.locked = false
	}
	b.data = nil
}

// withSecret copies plaintext into a locked buffer, invokes fn, and
// guarantees zero-and-release on every exit path including panic.
func withSecret(plain []byte, fn func([]byte) error) (err error) {
	buf := newSecretBuffer(len(plain))
	copy(buf.data, plain)
	// Zero the caller's copy immediately; the locked buffer is now the
	// only live plaintext.
	for i := range plain {
		plain[i] = 0
	}

	defer func() {
		buf.Release()
		if r := recover(); r != nil {
			err = fmt.Errorf("store: secret handler panicked: %v", r)
		}
	}()

	return fn(buf.data)
}
