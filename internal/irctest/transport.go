package irctest

import (
	"io"
	"strings"
	"sync"
	"time"
)

// A FakeTransport is an in-memory irc.Transport. Lines passed to Feed are
// read by the client, and lines written by the client are kept for the test
// to inspect.
type FakeTransport struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once

	mutex sync.Mutex
	sent  []string
}

// NewFakeTransport creates a new fake transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		lines:  make(chan string, 256),
		closed: make(chan struct{}),
	}
}

// ReadLine waits for a line from Feed, or fails with io.EOF once closed.
func (transport *FakeTransport) ReadLine() (string, error) {
	select {
	case line := <-transport.lines:
		return line, nil
	case <-transport.closed:
		return "", io.EOF
	}
}

// WriteLine records the line, or fails with io.ErrClosedPipe once closed.
func (transport *FakeTransport) WriteLine(line string) error {
	if transport.Closed() {
		return io.ErrClosedPipe
	}

	transport.mutex.Lock()
	transport.sent = append(transport.sent, line)
	transport.mutex.Unlock()

	return nil
}

// Close closes the transport. It's safe to call more than once.
func (transport *FakeTransport) Close() error {
	transport.closeOnce.Do(func() {
		close(transport.closed)
	})

	return nil
}

// Closed returns true if the transport is closed.
func (transport *FakeTransport) Closed() bool {
	select {
	case <-transport.closed:
		return true
	default:
		return false
	}
}

// Feed queues lines for the client to read.
func (transport *FakeTransport) Feed(lines ...string) {
	for _, line := range lines {
		transport.lines <- line
	}
}

// Sent gets a copy of the lines written so far.
func (transport *FakeTransport) Sent() []string {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()

	return append([]string(nil), transport.sent...)
}

// SentWithPrefix gets the written lines starting with the prefix.
func (transport *FakeTransport) SentWithPrefix(prefix string) []string {
	results := make([]string, 0, 4)
	for _, line := range transport.Sent() {
		if strings.HasPrefix(line, prefix) {
			results = append(results, line)
		}
	}

	return results
}

// WaitFor waits until a line starting with the prefix has been written, and
// returns it.
func (transport *FakeTransport) WaitFor(prefix string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)

	for {
		if lines := transport.SentWithPrefix(prefix); len(lines) > 0 {
			return lines[0], true
		}
		if time.Now().After(deadline) {
			return "", false
		}

		time.Sleep(time.Millisecond * 5)
	}
}
