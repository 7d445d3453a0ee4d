// Package web serves the controller's HTTP API and status page.
//
// Requests are handled one at a time from the control loop: ServeOne
// accepts at most one connection, reads a single request, answers it and
// closes the connection.
package web

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sweeney/atx-controller/internal/device"
	"github.com/sweeney/atx-controller/internal/logic"
	"github.com/sweeney/atx-controller/internal/metrics"
	"github.com/sweeney/atx-controller/internal/status"
)

// Device is the controller state the handlers read and mutate.
type Device interface {
	Perform(a logic.Action) device.ActionResult
	ScheduleReboot() device.RebootResult
	LED(observe bool) status.LEDJSON
	Health() status.HealthJSON
}

// Listener is a listener whose Accept can be bounded by a deadline.
// *net.TCPListener satisfies it.
type Listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// Options configures a Server.
type Options struct {
	Board          string
	ReadTimeout    time.Duration
	MaxHeaderLines int
	Metrics        *metrics.Metrics
	Logger         *log.Logger
}

// Server dispatches requests to a Device.
type Server struct {
	dev            Device
	board          string
	readTimeout    time.Duration
	maxHeaderLines int
	metrics        *metrics.Metrics
	log            *log.Logger
	routes         []route
}

// New creates a Server for dev.
func New(dev Device, opts Options) *Server {
	s := &Server{
		dev:            dev,
		board:          opts.Board,
		readTimeout:    opts.ReadTimeout,
		maxHeaderLines: opts.MaxHeaderLines,
		metrics:        opts.Metrics,
		log:            opts.Logger,
	}
	if s.readTimeout <= 0 {
		s.readTimeout = 2 * time.Second
	}
	if s.maxHeaderLines <= 0 {
		s.maxHeaderLines = 64
	}
	if s.log == nil {
		s.log = log.New(os.Stderr, "http: ", log.LstdFlags)
	}
	s.routes = s.routeTable()
	return s
}

// ServeOne waits up to wait for a connection on ln and serves it. It
// returns false, with a nil error, if no client connected in time.
func (s *Server) ServeOne(ln Listener, wait time.Duration) (bool, error) {
	if err := ln.SetDeadline(time.Now().Add(wait)); err != nil {
		return false, err
	}
	conn, err := ln.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return false, nil
		}
		return false, err
	}
	s.ServeConn(conn)
	return true, nil
}

// ServeConn handles exactly one request on conn and closes it.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	req, err := s.readRequest(conn, br)

	var (
		resp  response
		label string
	)
	switch {
	case err == nil:
		resp, label = s.dispatch(req)
		s.log.Printf("%s %s %d", req.method, req.path, resp.code)
	case errors.Is(err, errBadRequest):
		resp, label = errorResponse(http.StatusBadRequest, "bad_request"), "invalid"
		s.log.Printf("%s: bad request", conn.RemoteAddr())
	case errors.Is(err, errEmptyRequest):
		return
	default:
		if !errors.Is(err, io.EOF) {
			s.log.Printf("%s: read: %v", conn.RemoteAddr(), err)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(label, strconv.Itoa(resp.code)).Inc()
	}

	conn.SetWriteDeadline(time.Now().Add(s.readTimeout))
	if err := resp.write(conn); err != nil {
		s.log.Printf("%s: write: %v", conn.RemoteAddr(), err)
	}
}

type route struct {
	path    string
	method  string
	handler func() response
}

func (s *Server) routeTable() []route {
	return []route{
		{"/", http.MethodGet, s.handleIndex},
		{"/api/power/on", http.MethodPost, s.actionHandler(logic.ActionOn)},
		{"/api/power/off", http.MethodPost, s.actionHandler(logic.ActionOff)},
		{"/api/power/reset", http.MethodPost, s.actionHandler(logic.ActionReset)},
		{"/api/power/led", http.MethodGet, s.handleLED},
		{"/api/system/reboot", http.MethodPost, s.handleReboot},
		{"/api/health", http.MethodGet, s.handleHealth},
		{"/metrics", http.MethodGet, s.handleMetrics},
	}
}

// dispatch matches the exact path first, then the method. The returned
// label is the matched route, used for metrics.
func (s *Server) dispatch(req *request) (response, string) {
	for _, rt := range s.routes {
		if rt.path != req.path {
			continue
		}
		if rt.method != req.method {
			return errorResponse(http.StatusMethodNotAllowed, "method_not_allowed"), rt.path
		}
		return rt.handler(), rt.path
	}
	return errorResponse(http.StatusNotFound, "not_found"), "unmatched"
}

func (s *Server) actionHandler(a logic.Action) func() response {
	return func() response {
		res := s.dev.Perform(a)
		st := "ok"
		if !res.OK() {
			st = "error"
		}
		return jsonResponse(http.StatusOK, status.ActionJSON{
			Status:     st,
			Action:     a.Label(),
			PowerState: res.Power,
		})
	}
}

func (s *Server) handleLED() response {
	return jsonResponse(http.StatusOK, s.dev.LED(true))
}

func (s *Server) handleHealth() response {
	return jsonResponse(http.StatusOK, s.dev.Health())
}

func (s *Server) handleReboot() response {
	code, body := rebootResponse(s.dev.ScheduleReboot())
	return jsonResponse(code, body)
}

func (s *Server) handleMetrics() response {
	var buf bytes.Buffer
	if s.metrics != nil {
		if err := s.metrics.Write(&buf); err != nil {
			s.log.Printf("metrics: %v", err)
			return errorResponse(http.StatusInternalServerError, "internal_error")
		}
	}
	return response{code: http.StatusOK, contentType: contentMetrics, body: buf.Bytes()}
}

func (s *Server) handleIndex() response {
	var buf bytes.Buffer
	if err := renderIndex(&buf, s.board, s.dev.LED(true)); err != nil {
		s.log.Printf("render index: %v", err)
		return errorResponse(http.StatusInternalServerError, "internal_error")
	}
	return response{code: http.StatusOK, contentType: contentHTML, body: buf.Bytes()}
}
