package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/fzft/go-static-server/proto"
)

const DefaultTimeout = 5 * time.Second

// Client issues one GET per connection, matching what the server supports.
type Client struct {
	Addr    string
	Timeout time.Duration
}

func New(host string, port int) *Client {
	return &Client{
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Timeout: DefaultTimeout,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", c.Addr, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.Addr, err)
	}
	if c.Timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// RequestLine formats the request sent for path.
func RequestLine(path string) []byte {
	return []byte(proto.RequestPrefix[:len(proto.RequestPrefix)-1] + path + " HTTP/1.0" + proto.CRLF)
}

// Get requests path and decodes the response.
func (c *Client) Get(path string) (*proto.Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(RequestLine(path)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	resp, err := proto.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Raw sends request verbatim and returns everything the server writes until
// it closes the connection.
func (c *Client) Raw(request []byte) ([]byte, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(request); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return io.ReadAll(conn)
}
