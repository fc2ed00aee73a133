package main

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

const (
	defaultIdleTimeout = 10 * time.Second
	defaultAddress     = ":8080"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

type ServerOptions struct {
	Addr        string
	IdleTimeout time.Duration
	Settings    ReaderSettings
}

type connStatus struct {
	state atomic.Int32 // ConnState
}

// Server accepts connections and runs one Worker goroutine per connection.
// Router and static resolver are shared read-only by all workers.
type Server struct {
	opts       ServerOptions
	dispatcher Dispatcher
	static     *StaticResolver
	log        zerolog.Logger

	mu      sync.Mutex // guards ln and the closing transition
	ln      net.Listener
	closing atomic.Bool
	wg      sync.WaitGroup

	// live connections, added on first state report and removed on close
	conns  *xsync.MapOf[net.Conn, *connStatus]
	connID atomic.Int64
}

func NewServer(opts ServerOptions, dispatcher Dispatcher, static *StaticResolver, log zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = defaultAddress
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if dispatcher == nil {
		dispatcher = NewRouter()
	}
	return &Server{
		opts:       opts,
		dispatcher: dispatcher,
		static:     static,
		log:        log,
		conns:      xsync.NewMapOf[net.Conn, *connStatus](),
	}
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called, and then
// returns ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("http4j started")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			// back off on transient failures such as running out of fds
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			s.log.Warn().Err(err).Dur("retry", delay).Msg("accept error")
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.mu.Lock()
		if s.closing.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handle(conn)
	}
}

// Addr returns the listening address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) handle(conn net.Conn) {
	log := s.log.With().
		Int64("conn", s.connID.Add(1)).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	defer func() {
		// A panicking handler takes down its own connection only.
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("worker panicked")
			conn.Close()
		}
		s.conns.Delete(conn)
		s.wg.Done()
	}()

	worker := NewWorker(WorkerOptions{
		Dispatcher:  s.dispatcher,
		Static:      s.static,
		Settings:    s.opts.Settings,
		IdleTimeout: s.opts.IdleTimeout,
		OnState:     s.trackState,
		Log:         log,
	})
	worker.Start(conn) // worker takes the ownership of |conn|
}

func (s *Server) trackState(conn net.Conn, state ConnState) {
	if state == StateClosed {
		s.conns.Delete(conn)
		return
	}
	cs, _ := s.conns.LoadOrStore(conn, &connStatus{})
	cs.state.Store(int32(state))
	if state == StateIdle && s.closing.Load() {
		conn.Close()
	}
}

// closeConns closes the tracked connections for which pick returns true.
func (s *Server) closeConns(pick func(ConnState) bool) {
	s.conns.Range(func(conn net.Conn, cs *connStatus) bool {
		if pick(ConnState(cs.state.Load())) {
			conn.Close()
		}
		return true
	})
}

// Shutdown stops accepting, closes idle connections and waits for active
// ones to finish their current response. When ctx is done first, the
// remaining connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	ln := s.ln
	s.mu.Unlock()

	s.log.Info().Msg("shutting down")
	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	s.closeConns(func(state ConnState) bool { return state == StateIdle })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("shutdown complete")
		return err
	case <-ctx.Done():
		s.log.Warn().Int("open", s.conns.Size()).Msg("grace period exceeded, closing connections")
		s.closeConns(func(ConnState) bool { return true })
		return ctx.Err()
	}
}
