package irctest

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gissleh/ircengine"
)

// An Interaction is a scripted server that a real client can connect to
// over TCP. It plays its lines in order: server lines are written, client
// lines are waited for and callbacks are run in between.
type Interaction struct {
	wg sync.WaitGroup

	// Strict fails on the first unexpected client line. Otherwise those
	// are logged and skipped.
	Strict bool
	// Timeout for each read and write. By default two seconds.
	Timeout time.Duration

	Lines   []InteractionLine
	Log     []string
	Failure *InteractionFailure
}

// Listen listens for one client on a random local port and plays the
// interaction in a separate goroutine.
func (interaction *Interaction) Listen() (addr string, err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	lines := make([]InteractionLine, len(interaction.Lines))
	copy(lines, interaction.Lines)

	interaction.wg.Add(1)
	go func() {
		defer interaction.wg.Done()

		conn, err := listener.Accept()
		_ = listener.Close()
		if err != nil {
			interaction.Failure = &InteractionFailure{Index: -1, NetErr: err}
			return
		}
		defer conn.Close()

		interaction.Failure = interaction.play(conn, lines)
	}()

	return listener.Addr().String(), nil
}

// Wait waits for the interaction to be done. It's safe to check
// Failure and Log after that.
func (interaction *Interaction) Wait() {
	interaction.wg.Wait()
}

func (interaction *Interaction) play(conn net.Conn, lines []InteractionLine) *InteractionFailure {
	timeout := interaction.Timeout
	if timeout <= 0 {
		timeout = time.Second * 2
	}

	scanner := bufio.NewScanner(conn)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case line.Server != "":
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))
			if _, err := conn.Write([]byte(line.Server + "\r\n")); err != nil {
				return &InteractionFailure{Index: i, NetErr: err}
			}

		case line.Client != "":
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
			if !scanner.Scan() {
				err := scanner.Err()
				if err == nil {
					err = net.ErrClosed
				}

				return &InteractionFailure{Index: i, Expected: line.Client, NetErr: err}
			}

			input := strings.TrimRight(scanner.Text(), "\r")
			interaction.Log = append(interaction.Log, input)

			if !line.Matches(input) {
				if !interaction.Strict {
					i--
					continue
				}

				return &InteractionFailure{Index: i, Expected: line.Client, Result: input}
			}

		case line.Callback != nil:
			if err := line.Callback(); err != nil {
				return &InteractionFailure{Index: i, CBErr: err}
			}
		}
	}

	return nil
}

// InteractionFailure tells where and how an interaction went wrong. An
// Index of -1 means the client never connected.
type InteractionFailure struct {
	Index    int
	Expected string
	Result   string
	NetErr   error
	CBErr    error
}

func (failure *InteractionFailure) Error() string {
	switch {
	case failure.CBErr != nil:
		return fmt.Sprintf("line %d: callback failed: %s", failure.Index, failure.CBErr)
	case failure.NetErr != nil && failure.Expected != "":
		return fmt.Sprintf("line %d: waiting for %q: %s", failure.Index, failure.Expected, failure.NetErr)
	case failure.NetErr != nil:
		return fmt.Sprintf("line %d: %s", failure.Index, failure.NetErr)
	default:
		return fmt.Sprintf("line %d: expected %q, got %q", failure.Index, failure.Expected, failure.Result)
	}
}

// InteractionLine is part of an interaction: a line sent to the client, a
// line expected from it or a callback. Only one should be set.
type InteractionLine struct {
	Client   string
	Server   string
	Callback func() error
}

// Matches returns true if the input is the expected client line. A trailing
// `*` matches anything after it. Otherwise both are compared as parsed
// messages, so command case and repeated spaces don't matter.
func (line InteractionLine) Matches(input string) bool {
	if strings.HasSuffix(line.Client, "*") {
		return strings.HasPrefix(input, line.Client[:len(line.Client)-1])
	}
	if line.Client == input {
		return true
	}

	expected, err := irc.ParseMessage(line.Client, nil, false)
	if err != nil {
		return false
	}
	actual, err := irc.ParseMessage(input, nil, false)
	if err != nil {
		return false
	}

	return expected.String() == actual.String()
}
