package proto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed response")

// Response is a decoded server reply, used by clients and tests.
type Response struct {
	Proto  string
	Code   int
	Status string
	Header map[string]string
	// HeaderLen is the number of bytes before the body.
	HeaderLen int
	Body      []byte
}

// ContentLength returns the advertised body size, or -1 when absent.
func (r *Response) ContentLength() int64 {
	v, ok := r.Header["Content-Length"]
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func readLine(r *bufio.Reader) (string, int, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", len(line), err
	}
	n := len(line)
	if !strings.HasSuffix(line, CRLF) {
		return "", n, fmt.Errorf("%w: line %q not terminated by CRLF", ErrMalformed, line)
	}
	return line[:n-len(CRLF)], n, nil
}

// ReadResponse reads one response. The body is read up to Content-Length,
// or to EOF if the header is missing.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	statusLine, n, err := readLine(r)
	if err != nil {
		return nil, err
	}
	resp := &Response{Header: make(map[string]string), HeaderLen: n}

	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: status line %q", ErrMalformed, statusLine)
	}
	resp.Proto = parts[0]
	resp.Code, err = strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformed, parts[1])
	}
	resp.Status = strings.Join(parts[1:], " ")

	for {
		line, n, err := readLine(r)
		if err != nil {
			return nil, err
		}
		resp.HeaderLen += n
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header %q", ErrMalformed, line)
		}
		resp.Header[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if length := resp.ContentLength(); length >= 0 {
		resp.Body = make([]byte, length)
		if _, err := io.ReadFull(r, resp.Body); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return resp, nil
	}

	resp.Body, err = io.ReadAll(r)
	return resp, err
}
