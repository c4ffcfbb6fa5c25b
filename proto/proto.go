package proto

import (
	"bytes"
	"strconv"
)

// The server speaks a minimal subset of HTTP/1.0: one GET request per
// connection, answered with a status line, two headers and the body.

const CRLF string = "\r\n"

const (
	Version       = "HTTP/1.0"
	RequestPrefix = "GET /"
)

type Status int

const (
	StatusOK       Status = 200
	StatusNotFound Status = 404
	StatusInvalid  Status = 500
)

// Text returns the status line text following the protocol version.
func (s Status) Text() string {
	switch s {
	case StatusOK:
		return "200 OK"
	case StatusNotFound:
		return "404 Not Found"
	case StatusInvalid:
		return "500 Internal Server Error"
	default:
		return strconv.Itoa(int(s))
	}
}

// AppendHeader appends the response header block, including the blank line
// that separates it from the body, to dst.
func AppendHeader(dst []byte, status Status, contentType string, contentLength int64) []byte {
	dst = append(dst, Version...)
	dst = append(dst, ' ')
	dst = append(dst, status.Text()...)
	dst = append(dst, CRLF...)
	dst = append(dst, "Content-Type: "...)
	dst = append(dst, contentType...)
	dst = append(dst, CRLF...)
	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, contentLength, 10)
	dst = append(dst, CRLF...)
	dst = append(dst, CRLF...)
	return dst
}

// RequestComplete reports whether buf holds a whole request line: it ends in
// a newline, or it already reached the capacity limit.
func RequestComplete(buf []byte, limit int) bool {
	n := len(buf)
	return n > 0 && (buf[n-1] == '\n' || n >= limit)
}

// RequestTarget extracts the path of a "GET /<path> ..." request. The path
// runs up to the first space, carriage return or newline. ok is false when
// the request does not start with the GET prefix.
func RequestTarget(req []byte) (target string, ok bool) {
	if !bytes.HasPrefix(req, []byte(RequestPrefix)) {
		return "", false
	}
	rest := req[len(RequestPrefix)-1:]
	if i := bytes.IndexAny(rest, " \r\n"); i >= 0 {
		rest = rest[:i]
	}
	return string(rest), true
}
