package client

import (
	"bufio"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce answers a single connection with reply after reading one line.
func serveOnce(t *testing.T, reply string) (*Client, chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
		conn.Write([]byte(reply))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return New("127.0.0.1", port), got
}

func TestRequestLine(t *testing.T) {
	assert.Equal(t, "GET /index.html HTTP/1.0\r\n", string(RequestLine("/index.html")))
	assert.Equal(t, "GET / HTTP/1.0\r\n", string(RequestLine("/")))
}

func TestGet(t *testing.T) {
	body := "<html>hi</html>"
	c, got := serveOnce(t, "HTTP/1.0 200 OK\r\nContent-Type: text/html\r\nContent-Length: "+
		strconv.Itoa(len(body))+"\r\n\r\n"+body)

	resp, err := c.Get("/hi.html")
	require.NoError(t, err)
	assert.Equal(t, "GET /hi.html HTTP/1.0\r\n", <-got)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "text/html", resp.Header["Content-Type"])
	assert.Equal(t, body, string(resp.Body))
}

func TestGetMalformed(t *testing.T) {
	c, _ := serveOnce(t, "garbage\n")
	_, err := c.Get("/")
	assert.Error(t, err)
}

func TestRaw(t *testing.T) {
	c, got := serveOnce(t, "anything at all")
	raw, err := c.Raw([]byte("GET /x\n"))
	require.NoError(t, err)
	assert.Equal(t, "GET /x\n", <-got)
	assert.Equal(t, "anything at all", string(raw))
}

func TestDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = New("127.0.0.1", port).Get("/")
	assert.ErrorContains(t, err, "connect")
}
