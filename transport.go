package irc

import (
	"bufio"
	"net"
	"sync"
)

// A Transport delivers lines from the server and sends lines to it. ReadLine
// is only called from one goroutine, but WriteLine may be called from any.
// ReadLine should return an error once the transport is closed.
type Transport interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

type netTransport struct {
	conn       net.Conn
	reader     *bufio.Reader
	writeMutex sync.Mutex
}

// NewNetTransport wraps a connection with CRLF line framing.
func NewNetTransport(conn net.Conn) Transport {
	return &netTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (transport *netTransport) ReadLine() (string, error) {
	line, err := transport.reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return lineBreakRemover.Replace(line), nil
}

func (transport *netTransport) WriteLine(line string) error {
	transport.writeMutex.Lock()
	defer transport.writeMutex.Unlock()

	_, err := transport.conn.Write([]byte(line + "\r\n"))
	return err
}

func (transport *netTransport) Close() error {
	return transport.conn.Close()
}
