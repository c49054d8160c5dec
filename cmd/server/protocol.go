// Package main provides a PostgreSQL wire protocol gateway for EmbedDB.
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgproto3"
)

const (
	sslRequestCode    = 80877103
	gssEncRequestCode = 80877104
	cancelRequestCode = 80877102

	maxStartupLength = 10000
	maxFrameLength   = 1 << 30

	// maxAuthFrameLength bounds what an unauthenticated client can make
	// the gateway allocate.
	maxAuthFrameLength = 64 << 10
)

// SQLSTATE codes sent by the gateway itself.
const (
	codeInvalidPassword   = "28P01"
	codeProtocolViolation = "08P01"
)

var errCancelRequest = errors.New("cancel request")

// clientConn frames the messages of one client connection.
type clientConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newClientConn(conn net.Conn) *clientConn {
	return &clientConn{conn: conn, reader: bufio.NewReader(conn)}
}

// readStartup reads the startup message, declining SSL and GSS encryption
// requests on the way.
func (c *clientConn) readStartup() (*pgproto3.StartupMessage, error) {
	for {
		var header [4]byte
		if _, err := io.ReadFull(c.reader, header[:]); err != nil {
			return nil, err
		}
		length := int(binary.BigEndian.Uint32(header[:]))
		if length < 8 || length > maxStartupLength {
			return nil, fmt.Errorf("invalid startup message length %d", length)
		}

		body := make([]byte, length-4)
		if _, err := io.ReadFull(c.reader, body); err != nil {
			return nil, err
		}

		switch code := binary.BigEndian.Uint32(body); code {
		case sslRequestCode, gssEncRequestCode:
			if _, err := c.conn.Write([]byte{'N'}); err != nil {
				return nil, err
			}
		case cancelRequestCode:
			return nil, errCancelRequest
		case pgproto3.ProtocolVersionNumber:
			msg := &pgproto3.StartupMessage{}
			if err := msg.Decode(body); err != nil {
				return nil, err
			}
			return msg, nil
		default:
			return nil, fmt.Errorf("unsupported protocol version %d.%d", code>>16, code&0xffff)
		}
	}
}

// readFrame reads one message: its type byte, length and body, unmodified.
// Messages longer than limit are rejected before their body is read.
func (c *clientConn) readFrame(limit int) ([]byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint32(header[1:]))
	if length < 4 || length > limit {
		return nil, fmt.Errorf("invalid message length %d", length)
	}

	frame := make([]byte, 1+length)
	copy(frame, header[:])
	if _, err := io.ReadFull(c.reader, frame[5:]); err != nil {
		return nil, err
	}
	return frame, nil
}

// readPassword reads the client's answer to an authentication request.
func (c *clientConn) readPassword() (string, error) {
	frame, err := c.readFrame(maxAuthFrameLength)
	if err != nil {
		return "", err
	}
	if frame[0] != 'p' {
		return "", fmt.Errorf("expected password message, got %q", frame[0])
	}
	msg := &pgproto3.PasswordMessage{}
	if err := msg.Decode(frame[5:]); err != nil {
		return "", err
	}
	return msg.Password, nil
}

func (c *clientConn) send(msgs ...pgproto3.BackendMessage) error {
	var buf []byte
	for _, msg := range msgs {
		var err error
		if buf, err = msg.Encode(buf); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(buf)
	return err
}

// fatal reports an error that ends the connection.
func (c *clientConn) fatal(code, message string) error {
	return c.send(&pgproto3.ErrorResponse{
		Severity:            "FATAL",
		SeverityUnlocalized: "FATAL",
		Code:                code,
		Message:             message,
	})
}
