package web

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	// errEmptyRequest means the client sent a blank request line. The
	// connection is dropped without a response.
	errEmptyRequest = errors.New("empty request line")

	// errBadRequest is answered with 400 bad_request.
	errBadRequest = errors.New("malformed request")
)

// request is what the dispatcher keeps of an HTTP request. Header values
// other than Content-Length are discarded and the body is never parsed.
type request struct {
	method        string
	path          string
	contentLength int64
}

type parseState int

const (
	stateRequestLine parseState = iota
	stateHeaders
	stateBody
)

// readRequest drives one request through request line, headers and body
// discard. Every line read is bounded by the server's read timeout.
func (s *Server) readRequest(conn net.Conn, br *bufio.Reader) (*request, error) {
	req := &request{}
	headers := 0
	state := stateRequestLine

	for {
		switch state {
		case stateRequestLine:
			line, err := s.readLine(conn, br)
			if err != nil {
				return nil, err
			}
			if line == "" {
				return nil, errEmptyRequest
			}
			method, target, ok := parseRequestLine(line)
			if !ok {
				return nil, errBadRequest
			}
			req.method = strings.ToUpper(method)
			req.path = stripQuery(target)
			state = stateHeaders

		case stateHeaders:
			line, err := s.readLine(conn, br)
			if err != nil {
				return nil, err
			}
			if line == "" {
				state = stateBody
				continue
			}
			headers++
			if headers > s.maxHeaderLines {
				return nil, errBadRequest
			}
			if n, ok := contentLength(line); ok {
				req.contentLength = n
			}

		case stateBody:
			if req.contentLength > 0 {
				conn.SetReadDeadline(time.Now().Add(s.readTimeout))
				if _, err := io.CopyN(io.Discard, br, req.contentLength); err != nil {
					return nil, err
				}
			}
			return req, nil
		}
	}
}

// readLine reads one line with a fresh deadline and trims surrounding
// whitespace, including the CR of a CRLF terminator. A final line cut short
// by EOF is returned as is. Lines longer than the reader's buffer are
// rejected.
func (s *Server) readLine(conn net.Conn, br *bufio.Reader) (string, error) {
	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	raw, err := br.ReadSlice('\n')
	switch {
	case err == nil:
	case errors.Is(err, bufio.ErrBufferFull):
		return "", errBadRequest
	case errors.Is(err, io.EOF) && len(raw) > 0:
	default:
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// parseRequestLine splits "METHOD SP target SP version" on its first two
// spaces. Method and target must be non-empty; the version is ignored.
func parseRequestLine(line string) (method, target string, ok bool) {
	first := strings.IndexByte(line, ' ')
	if first <= 0 {
		return "", "", false
	}
	second := strings.IndexByte(line[first+1:], ' ')
	if second < 0 {
		return "", "", false
	}
	method = line[:first]
	target = line[first+1 : first+1+second]
	return method, target, method != "" && target != ""
}

func stripQuery(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

// contentLength reports the value of a Content-Length header line, matched
// case-insensitively. Unparseable or negative values count as 0.
func contentLength(line string) (int64, bool) {
	name, value, found := strings.Cut(line, ":")
	if !found || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return 0, true
	}
	return n, true
}
