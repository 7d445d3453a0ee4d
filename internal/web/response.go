package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sweeney/atx-controller/internal/status"
)

const (
	contentJSON    = "application/json"
	contentHTML    = "text/html; charset=utf-8"
	contentMetrics = "text/plain; version=0.0.4; charset=utf-8"
)

type response struct {
	code        int
	contentType string
	body        []byte
}

func jsonResponse(code int, v any) response {
	body, err := json.Marshal(v)
	if err != nil {
		return response{
			code:        http.StatusInternalServerError,
			contentType: contentJSON,
			body:        []byte(`{"error":"internal_error"}`),
		}
	}
	return response{code: code, contentType: contentJSON, body: body}
}

func errorResponse(code int, key string) response {
	return jsonResponse(code, status.ErrorJSON{Error: key})
}

// write serializes r as a complete HTTP/1.1 response. The connection is
// always closed afterwards, so no keep-alive or chunking is offered.
func (r response) write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", r.code, http.StatusText(r.code))
	fmt.Fprintf(bw, "Content-Type: %s\r\n", r.contentType)
	fmt.Fprintf(bw, "Content-Length: %d\r\n", len(r.body))
	bw.WriteString("Connection: close\r\n\r\n")
	bw.Write(r.body)
	return bw.Flush()
}
