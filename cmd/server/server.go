package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/nickyhof/EmbedDB/ps"
)

// Session answers the raw frontend protocol frames of one client.
type Session interface {
	ExecProtocolRaw(ctx context.Context, frame []byte) ([]byte, error)
	Close(ctx context.Context)
}

// Engine opens a protocol session for every client connection.
type Engine interface {
	NewSession() Session
}

// SessionFunc adapts an ordinary function to an Engine.
type SessionFunc func() Session

func (f SessionFunc) NewSession() Session {
	return f()
}

// InstanceEngine serves the sessions of an engine instance.
func InstanceEngine(instance *ps.Instance) Engine {
	return SessionFunc(func() Session {
		return instance.NewSession()
	})
}

// serverVersion is reported to clients in ParameterStatus.
const serverVersion = "16.0"

// Server relays PostgreSQL wire protocol connections to one engine.
type Server struct {
	name       string
	listener   net.Listener
	engine     Engine
	authConfig *AuthConfig

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a gateway for engine. A nil authConfig accepts every
// client.
func NewServer(name string, engine Engine, authConfig *AuthConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		name:       name,
		engine:     engine,
		authConfig: authConfig,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// Listen binds the first free port in [port, port+portRange].
func (s *Server) Listen(host string, port, portRange int) error {
	listener, err := listenFirstFree(host, port, portRange)
	if err != nil {
		return err
	}
	s.serve(listener)
	return nil
}

func listenFirstFree(host string, port, portRange int) (net.Listener, error) {
	var lastErr error
	for p := port; p <= port+portRange && p <= 65535; p++ {
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return listener, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in %d-%d: %w", port, port+portRange, lastErr)
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	log.Printf("%s listening on %s", s.name, listener.Addr())
	go s.acceptLoop()
}

// Stop closes the listener and every open connection. The engine is left
// running.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}

		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})

	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.track(conn, true)
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) track(conn net.Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.track(conn, false)
	defer conn.Close()

	c := newClientConn(conn)
	startup, err := c.readStartup()
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, errCancelRequest) {
			log.Printf("Startup failed for %s: %v", conn.RemoteAddr(), err)
			c.fatal(codeProtocolViolation, err.Error())
		}
		return
	}

	user := startup.Parameters["user"]
	if err := s.authenticate(c, user); err != nil {
		log.Printf("Client %s rejected: %v", conn.RemoteAddr(), err)
		return
	}
	if err := s.ready(c, startup); err != nil {
		log.Printf("Write error to %s: %v", conn.RemoteAddr(), err)
		return
	}
	log.Printf("Client connected: %s (user %s)", conn.RemoteAddr(), user)

	s.relay(c)
}

func (s *Server) ready(c *clientConn, startup *pgproto3.StartupMessage) error {
	var key [8]byte
	rand.Read(key[:])

	applicationName := startup.Parameters["application_name"]
	return c.send(
		&pgproto3.AuthenticationOk{},
		&pgproto3.ParameterStatus{Name: "server_version", Value: serverVersion},
		&pgproto3.ParameterStatus{Name: "server_encoding", Value: "UTF8"},
		&pgproto3.ParameterStatus{Name: "client_encoding", Value: "UTF8"},
		&pgproto3.ParameterStatus{Name: "DateStyle", Value: "ISO, MDY"},
		&pgproto3.ParameterStatus{Name: "TimeZone", Value: "UTC"},
		&pgproto3.ParameterStatus{Name: "integer_datetimes", Value: "on"},
		&pgproto3.ParameterStatus{Name: "standard_conforming_strings", Value: "on"},
		&pgproto3.ParameterStatus{Name: "application_name", Value: applicationName},
		&pgproto3.BackendKeyData{
			ProcessID: binary.BigEndian.Uint32(key[:4]),
			SecretKey: binary.BigEndian.Uint32(key[4:]),
		},
		&pgproto3.ReadyForQuery{TxStatus: 'I'},
	)
}

// relay forwards frames to the client's own engine session and writes back
// what it answers, byte for byte, until the client terminates. Closing the
// session drops any transaction block the client left open.
func (s *Server) relay(c *clientConn) {
	remote := c.conn.RemoteAddr()
	session := s.engine.NewSession()
	defer session.Close(context.WithoutCancel(s.ctx))

	for {
		frame, err := c.readFrame(maxFrameLength)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("Read error from %s: %v", remote, err)
			}
			return
		}

		response, err := session.ExecProtocolRaw(s.ctx, frame)
		if err != nil {
			log.Printf("Engine error for %s: %v", remote, err)
			return
		}
		if len(response) > 0 {
			if _, err := c.conn.Write(response); err != nil {
				log.Printf("Write error to %s: %v", remote, err)
				return
			}
		}

		if frame[0] == 'X' {
			log.Printf("Client disconnected: %s", remote)
			return
		}
	}
}
