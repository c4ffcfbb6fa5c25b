package node

import (
	"errors"
	"fmt"

	"github.com/fzft/go-static-server/list"
	"go.uber.org/multierr"
)

var ErrDuplicateFd = errors.New("descriptor already in table")

// Table holds every live connection keyed by descriptor, in accept order.
// The listener is its permanent first entry.
type Table struct {
	conns    *list.List[*Connection]
	index    map[int]*list.Node[*Connection]
	listener *Connection
	bufSize  int
	maxFd    int
}

func NewTable(listenFd int, bufSize int) *Table {
	t := &Table{
		conns:   list.New[*Connection](),
		index:   make(map[int]*list.Node[*Connection]),
		bufSize: bufSize,
		maxFd:   listenFd,
	}
	t.listener = &Connection{fd: listenFd, listener: true, stage: StageReading}
	t.index[listenFd] = t.conns.PushTail(t.listener)
	return t
}

// Insert adds a connection in the reading stage with an empty buffer.
func (t *Table) Insert(fd int, id int64) (*Connection, error) {
	if _, ok := t.index[fd]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateFd, fd)
	}
	conn := newConnection(id, fd, t.bufSize)
	t.index[fd] = t.conns.PushTail(conn)
	if fd > t.maxFd {
		t.maxFd = fd
	}
	return conn, nil
}

// Remove closes the connection held by node, drops it from the table and
// returns the node that followed it. The listener is never removed; for it
// Remove only returns the next node.
func (t *Table) Remove(node *list.Node[*Connection]) (*list.Node[*Connection], error) {
	conn := node.Value
	if conn.listener {
		return node.Next, nil
	}
	if t.index[conn.fd] != node {
		return node.Next, fmt.Errorf("descriptor %d not in table", conn.fd)
	}

	err := conn.close()
	delete(t.index, conn.fd)
	next := t.conns.Remove(node)

	if conn.fd == t.maxFd {
		t.recomputeMaxFd()
	}
	return next, err
}

func (t *Table) recomputeMaxFd() {
	t.maxFd = t.listener.fd
	t.conns.Each(func(c *Connection) bool {
		if c.fd > t.maxFd {
			t.maxFd = c.fd
		}
		return true
	})
}

// Lookup returns the node holding fd.
func (t *Table) Lookup(fd int) (*list.Node[*Connection], bool) {
	node, ok := t.index[fd]
	return node, ok
}

// Front returns the first node, which is always the listener.
func (t *Table) Front() *list.Node[*Connection] {
	return t.conns.Head
}

func (t *Table) Listener() *Connection {
	return t.listener
}

// MaxFd returns the largest descriptor in the table.
func (t *Table) MaxFd() int {
	return t.maxFd
}

// Len counts the connections, listener included.
func (t *Table) Len() int {
	return t.conns.Len()
}

// CloseAll closes every connection, the listener included, and empties the
// table.
func (t *Table) CloseAll() error {
	var err error
	t.conns.Each(func(c *Connection) bool {
		err = multierr.Append(err, c.close())
		return true
	})
	t.conns.Empty()
	t.index = make(map[int]*list.Node[*Connection])
	t.maxFd = -1
	return err
}
