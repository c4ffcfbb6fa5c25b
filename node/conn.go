package node

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fzft/go-static-server/proto"
	"go.uber.org/zap/zapcore"
)

var ErrBufferFull = errors.New("buffer full")

type Stage uint8

const (
	StageReading Stage = iota
	StageSending
)

func (s Stage) String() string {
	switch s {
	case StageReading:
		return "reading"
	case StageSending:
		return "sending"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Buffer is a fixed-capacity byte buffer. While reading it accumulates the
// request; while sending it holds the chunk being written, with offset
// marking how much of it already went out.
type Buffer struct {
	data   []byte
	length int
	offset int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Bytes returns the valid bytes.
func (b *Buffer) Bytes() []byte { return b.data[:b.length] }

// Free returns the unused tail, for reading directly into the buffer.
func (b *Buffer) Free() []byte { return b.data[b.length:] }

// Pending returns the valid bytes not yet consumed.
func (b *Buffer) Pending() []byte { return b.data[b.offset:b.length] }

func (b *Buffer) Len() int { return b.length }
func (b *Buffer) Cap() int { return len(b.data) }
func (b *Buffer) Offset() int { return b.offset }
func (b *Buffer) Full() bool { return b.length == len(b.data) }
func (b *Buffer) Drained() bool { return b.offset >= b.length }

// Append copies p after the valid bytes. Nothing is copied if p does not fit.
func (b *Buffer) Append(p []byte) error {
	if len(p) > len(b.data)-b.length {
		return fmt.Errorf("%w: appending %d bytes with %d free", ErrBufferFull, len(p), len(b.data)-b.length)
	}
	b.length += copy(b.data[b.length:], p)
	return nil
}

// Commit marks n bytes written into Free as valid.
func (b *Buffer) Commit(n int) error {
	if n < 0 || n > len(b.data)-b.length {
		return fmt.Errorf("%w: committing %d bytes with %d free", ErrBufferFull, n, len(b.data)-b.length)
	}
	b.length += n
	return nil
}

// Advance consumes n pending bytes.
func (b *Buffer) Advance(n int) {
	b.offset += n
	if b.offset > b.length {
		b.offset = b.length
	}
}

func (b *Buffer) Reset() {
	b.length, b.offset = 0, 0
}

// Connection is the state kept for one socket. The listening socket is
// represented by a Connection too, flagged as listener.
type Connection struct {
	id       int64
	fd       int
	ip       string
	listener bool
	stage    Stage
	buf      *Buffer

	// source is the file streamed as the response body.
	source *os.File
	// eof is set once source has nothing left to read.
	eof    bool
	url    string
	status proto.Status

	// pending is set while a file job owns buf and source.
	pending bool
	// born is the loop iteration that accepted the connection.
	born uint64
	sent int64
}

func newConnection(id int64, fd int, capacity int) *Connection {
	return &Connection{
		id:    id,
		fd:    fd,
		stage: StageReading,
		buf:   NewBuffer(capacity),
	}
}

func (c *Connection) ID() int64 { return c.id }
func (c *Connection) Fd() int { return c.fd }
func (c *Connection) Stage() Stage { return c.stage }

// fill reads the next chunk of source into the free part of buf. Reaching
// the end of the file is not an error; it sets eof.
func (c *Connection) fill() error {
	n, err := io.ReadFull(c.source, c.buf.Free())
	if cerr := c.buf.Commit(n); cerr != nil {
		return cerr
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.eof = true
		return nil
	default:
		return fmt.Errorf("read %s: %w", c.url, err)
	}
}

// refill replaces the drained buffer with the next chunk of source.
func (c *Connection) refill() error {
	c.buf.Reset()
	return c.fill()
}

func (c *Connection) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("id", c.id)
	enc.AddInt("fd", c.fd)
	if c.listener {
		enc.AddBool("listener", true)
		return nil
	}
	enc.AddString("stage", c.stage.String())
	enc.AddInt("offset", c.buf.Offset())
	enc.AddInt("size", c.buf.Len())
	if c.sent > 0 {
		enc.AddInt64("sent", c.sent)
	}
	return nil
}
