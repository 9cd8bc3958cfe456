package control

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/rs/xid"
	"github.com/slaclab/rouge/rougeerr"
)

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger overrides the Server's logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// Server runs the paired publish/request listeners described by the
// control endpoint's external interface: reqAddr answers UTF-8
// request/response traffic, pubAddr streams unsolicited notifications of
// every Hub.Set call.
type Server struct {
	hub              *Hub
	log              *slog.Logger
	pubAddr, reqAddr string

	pubListener, reqListener net.Listener

	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup
}

// Open creates a Server bound to hub, listening on pubAddr (publish) and
// reqAddr (request). Listen failures are fatal and returned synchronously,
// per the specification's OpenError-is-fatal contract.
func Open(hub *Hub, pubAddr, reqAddr string, opts ...Option) (*Server, error) {
	s := &Server{
		hub:     hub,
		log:     slog.Default(),
		pubAddr: pubAddr,
		reqAddr: reqAddr,
	}
	for _, opt := range opts {
		opt(s)
	}

	pubLn, err := net.Listen("tcp", pubAddr)
	if err != nil {
		return nil, rougeerr.NewOpenError(pubAddr, 0, err)
	}
	reqLn, err := net.Listen("tcp", reqAddr)
	if err != nil {
		pubLn.Close()
		return nil, rougeerr.NewOpenError(reqAddr, 0, err)
	}

	s.pubListener = pubLn
	s.reqListener = reqLn
	s.stopCtx, s.stopCancel = context.WithCancel(context.Background())
	return s, nil
}

// Start launches the accept loops for both listeners.
func (s *Server) Start() {
	s.wg.Add(2)
	go s.acceptLoop(s.pubListener, s.servePub)
	go s.acceptLoop(s.reqListener, s.serveReq)
}

// Close stops accepting new connections, unblocks both accept loops, and
// joins them before returning.
func (s *Server) Close() error {
	s.stopCancel()
	s.pubListener.Close()
	s.reqListener.Close()
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener, serve func(net.Conn)) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCtx.Done():
				return
			default:
				s.log.Warn("control: accept failed", "addr", ln.Addr(), "error", err)
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			serve(conn)
		}()
	}
}

// servePub registers conn as a publish subscriber and streams notification
// lines to it until it disconnects or the Server closes.
func (s *Server) servePub(conn net.Conn) {
	defer conn.Close()
	id := xid.New().String()
	ch := s.hub.subscribe(id)
	defer s.hub.unsubscribe(id)

	for {
		select {
		case <-s.stopCtx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			if _, err := conn.Write([]byte(line + "\n")); err != nil {
				return
			}
		}
	}
}

// serveReq reads newline-delimited requests from conn and writes one
// response line per request, independent of any other connection or prior
// request on this one.
func (s *Server) serveReq(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply := s.handleRequest(scanner.Text())
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(line string) string {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(fields) == 0 || fields[0] == "" {
		return "ERR empty request"
	}

	switch strings.ToUpper(fields[0]) {
	case "GET":
		if len(fields) != 2 {
			return "ERR GET requires exactly one argument"
		}
		value, err := s.hub.Get(fields[1])
		if err != nil {
			return "ERR " + err.Error()
		}
		return "OK " + value

	case "SET":
		if len(fields) != 3 {
			return "ERR SET requires a name and a value"
		}
		if err := s.hub.Set(fields[1], fields[2]); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"

	default:
		return "ERR unknown command: " + fields[0]
	}
}
