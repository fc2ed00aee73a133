package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher maps requests to handlers. Router is the implementation used
// by the server.
type Dispatcher interface {
	FindHandler(method, path string) Handler
	AllowedMethods(path string) []string
}

// ConnState is reported to WorkerOptions.OnState as a connection moves
// through its lifecycle.
type ConnState int

const (
	// waiting for the first byte of the next request
	StateIdle ConnState = iota
	// reading, dispatching or answering a request
	StateActive
	StateClosed
)

func (c ConnState) String() string {
	switch c {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type WorkerOptions struct {
	Dispatcher  Dispatcher
	Static      *StaticResolver // nil disables static fallback
	Settings    ReaderSettings
	IdleTimeout time.Duration // zero disables the timeout
	OnState     func(net.Conn, ConnState)
	Log         zerolog.Logger
}

// Worker serves the requests of one connection, strictly one after another.
type Worker struct {
	opts   WorkerOptions
	conn   net.Conn
	reader *bufio.Reader
	req    *Request
	res    *Response
	close  bool
	served int
	closed bool
}

type stateFunc func(*Worker) stateFunc

func NewWorker(opts WorkerOptions) *Worker {
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewRouter()
	}
	return &Worker{opts: opts}
}

// Start runs the connection until it closes. The worker takes ownership of
// conn and closes it on every exit path.
func (w *Worker) Start(conn net.Conn) {
	w.conn = conn
	w.reader = bufio.NewReader(&idleTimeoutReader{conn, w.opts.IdleTimeout})
	defer w.finish()

	for state := waitForRequest; state != nil; {
		state = state(w)
	}
}

func (w *Worker) setState(state ConnState) {
	if w.opts.OnState != nil {
		w.opts.OnState(w.conn, state)
	}
}

func (w *Worker) finish() {
	if w.closed {
		return
	}
	w.closed = true
	w.conn.Close()
	w.setState(StateClosed)
	w.opts.Log.Debug().Int("served", w.served).Msg("connection closed")
}

// idleTimeoutReader arms a fresh read deadline before every read, so the
// timeout bounds each wait for data rather than a whole request.
type idleTimeoutReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}

func (w *Worker) armWriteDeadline() error {
	if w.opts.IdleTimeout <= 0 {
		return nil
	}
	return w.conn.SetWriteDeadline(time.Now().Add(w.opts.IdleTimeout))
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isGetOrHead(method string) bool {
	return strings.EqualFold(method, "GET") || strings.EqualFold(method, "HEAD")
}

// readFailed decides what a failed read means for the connection. Only
// protocol errors get an answer; everything else closes silently.
func (w *Worker) readFailed(err error) stateFunc {
	var perr *ParseError
	switch {
	case errors.Is(err, ErrStreamEnded) || errors.Is(err, io.EOF):
		w.opts.Log.Debug().Msg("client closed connection")
	case isTimeout(err):
		w.opts.Log.Debug().Msg("keep-alive timeout reached")
	case errors.As(err, &perr):
		w.opts.Log.Warn().Str("reason", perr.Reason).Msg("bad request")
		w.res = BadRequest([]byte("Bad request: "+perr.Reason), "text/plain")
		return sendErrorResponse
	case errors.Is(err, net.ErrClosed):
		w.opts.Log.Debug().Msg("connection closed locally")
	default:
		w.opts.Log.Warn().Err(err).Msg("client I/O error")
	}
	return finishWorker
}

// state funcs

func waitForRequest(w *Worker) stateFunc {
	w.req, w.res, w.close = nil, nil, false
	w.setState(StateIdle)
	if _, err := w.reader.Peek(1); err != nil {
		return w.readFailed(err)
	}
	w.setState(StateActive)

	req, err := ReadRequest(w.reader, w.opts.Settings)
	if err != nil {
		return w.readFailed(err)
	}
	w.req = req
	return dispatchRequest
}

func dispatchRequest(w *Worker) stateFunc {
	req := w.req
	w.opts.Log.Info().Str("method", req.Method).Str("path", req.Path).Msg("request")
	w.opts.Log.Debug().
		Str("version", req.Version).
		Interface("headers", req.Headers).
		Int("body", len(req.Body)).
		Msg("request received")

	d := w.opts.Dispatcher
	handler := d.FindHandler(req.Method, req.Path)
	if handler == nil && strings.EqualFold(req.Method, "HEAD") {
		// HEAD is answered by the GET handler; the writer drops the body.
		handler = d.FindHandler("GET", req.Path)
	}

	switch {
	case handler != nil:
		res, err := handler.Handle(req)
		if err != nil {
			w.opts.Log.Error().Err(err).Str("path", req.Path).Msg("handler failed")
			return finishWorker
		}
		if res == nil {
			w.opts.Log.Error().Str("path", req.Path).Msg("handler returned no response")
			return finishWorker
		}
		w.res = res
	case isGetOrHead(req.Method) && w.opts.Static != nil:
		w.res = w.opts.Static.Resolve(req.Path)
	default:
		if allowed := d.AllowedMethods(req.Path); len(allowed) > 0 {
			w.res = MethodNotAllowed(allowed)
		} else {
			w.res = NotFound([]byte("Route not found"), "text/plain")
		}
	}

	if w.res.Headers == nil {
		w.res.Headers = make(HTTPHeader)
	}
	w.close = strings.EqualFold(req.Headers.Get("connection"), "close")
	if w.close {
		w.res.Headers.Set("Connection", "close")
	} else {
		w.res.Headers.Set("Connection", "keep-alive")
	}
	return sendResponse
}

func sendResponse(w *Worker) stateFunc {
	if err := w.armWriteDeadline(); err != nil {
		w.opts.Log.Debug().Err(err).Msg("write deadline failed")
		return finishWorker
	}
	if err := WriteResponse(w.conn, w.res, w.req.Method); err != nil {
		w.opts.Log.Debug().Err(err).Msg("write failed")
		return finishWorker
	}
	w.served++
	w.opts.Log.Info().
		Str("method", w.req.Method).
		Str("path", w.req.Path).
		Int("status", w.res.Status).
		Msg("response")
	w.opts.Log.Debug().
		Interface("headers", w.res.Headers).
		Int("body", len(w.res.Body)).
		Msg("response sent")

	if w.close {
		return finishWorker
	}
	return waitForRequest
}

// The stream position cannot be trusted after a bad request, so the
// connection always closes after the error response.
func sendErrorResponse(w *Worker) stateFunc {
	if err := w.armWriteDeadline(); err != nil {
		w.opts.Log.Debug().Err(err).Msg("write deadline failed")
		return finishWorker
	}
	if err := WriteResponse(w.conn, w.res, "UNKNOWN"); err != nil {
		w.opts.Log.Debug().Err(err).Msg("write failed")
	}
	return finishWorker
}

func finishWorker(w *Worker) stateFunc {
	w.finish()
	return nil
}
