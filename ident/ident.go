// Package ident answers ident (RFC 1413) requests, which some servers make
// on connect to learn the username behind the connection.
package ident

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reply makes the response to a request line like "6191, 23". Only the ASCII
// letters of the username are used, and a random token is used if there are
// none.
func Reply(request, username string) string {
	return strings.TrimSpace(request) + " : USERID : UNIX : " + filterUsername(username)
}

func filterUsername(username string) string {
	sb := strings.Builder{}
	for _, ch := range username {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			sb.WriteRune(ch)
		}
	}

	if sb.Len() == 0 {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	}

	return sb.String()
}

// Serve answers one request per connection on the listener until the context
// is cancelled, which also closes the listener.
func Serve(ctx context.Context, listener net.Listener, username string) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-done:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		go handleConn(conn, username)
	}
}

func handleConn(conn net.Conn, username string) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(time.Second * 10))

	request, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && request == "" {
		return
	}

	_, _ = conn.Write([]byte(Reply(request, username) + "\r\n"))
}
