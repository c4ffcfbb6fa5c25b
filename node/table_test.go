package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newSocketFd(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	return fd
}

func tableFds(tb *Table) []int {
	var fds []int
	for node := tb.Front(); node != nil; node = node.Next {
		fds = append(fds, node.Value.fd)
	}
	return fds
}

func TestTableInsert(t *testing.T) {
	lfd := newSocketFd(t)
	tb := NewTable(lfd, 64)
	defer tb.CloseAll()

	assert.Equal(t, 1, tb.Len())
	assert.Equal(t, lfd, tb.MaxFd())
	assert.True(t, tb.Listener().listener)
	assert.Same(t, tb.Listener(), tb.Front().Value)

	a := newSocketFd(t)
	b := newSocketFd(t)
	ca, err := tb.Insert(a, 1)
	require.NoError(t, err)
	_, err = tb.Insert(b, 2)
	require.NoError(t, err)

	assert.Equal(t, StageReading, ca.Stage())
	assert.Equal(t, 0, ca.buf.Len())
	assert.Equal(t, 64, ca.buf.Cap())
	assert.Equal(t, 3, tb.Len())
	assert.Equal(t, b, tb.MaxFd())
	assert.Equal(t, []int{lfd, a, b}, tableFds(tb))

	_, err = tb.Insert(a, 3)
	assert.ErrorIs(t, err, ErrDuplicateFd)
	assert.Equal(t, 3, tb.Len())

	node, ok := tb.Lookup(a)
	require.True(t, ok)
	assert.Same(t, ca, node.Value)
	_, ok = tb.Lookup(b + 100)
	assert.False(t, ok)
}

func TestTableRemoveMaxFd(t *testing.T) {
	lfd := newSocketFd(t)
	tb := NewTable(lfd, 64)
	defer tb.CloseAll()

	a := newSocketFd(t)
	b := newSocketFd(t)
	c := newSocketFd(t)
	for i, fd := range []int{a, b, c} {
		_, err := tb.Insert(fd, int64(i+1))
		require.NoError(t, err)
	}
	require.Equal(t, c, tb.MaxFd())

	// Removing a smaller descriptor keeps the maximum.
	node, _ := tb.Lookup(a)
	_, err := tb.Remove(node)
	require.NoError(t, err)
	assert.Equal(t, c, tb.MaxFd())
	assert.False(t, isFDValid(a), "removed descriptor is closed")

	node, _ = tb.Lookup(c)
	next, err := tb.Remove(node)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, b, tb.MaxFd())

	node, _ = tb.Lookup(b)
	_, err = tb.Remove(node)
	require.NoError(t, err)
	assert.Equal(t, lfd, tb.MaxFd())
	assert.Equal(t, 1, tb.Len())
}

func TestTableRemoveDuringTraversal(t *testing.T) {
	lfd := newSocketFd(t)
	tb := NewTable(lfd, 64)
	defer tb.CloseAll()

	var fds []int
	for i := 0; i < 6; i++ {
		fd := newSocketFd(t)
		_, err := tb.Insert(fd, int64(i))
		require.NoError(t, err)
		fds = append(fds, fd)
	}

	// Drop every other connection while walking the table once.
	var visited []int
	node := tb.Front()
	for i := 0; node != nil; i++ {
		visited = append(visited, node.Value.fd)
		if i%2 == 1 {
			var err error
			node, err = tb.Remove(node)
			require.NoError(t, err)
			continue
		}
		node = node.Next
	}

	assert.Equal(t, append([]int{lfd}, fds...), visited)
	assert.Equal(t, []int{lfd, fds[1], fds[3], fds[5]}, tableFds(tb))
	assert.Equal(t, fds[5], tb.MaxFd())
}

func TestTableListenerIsPermanent(t *testing.T) {
	lfd := newSocketFd(t)
	tb := NewTable(lfd, 64)
	defer tb.CloseAll()

	a := newSocketFd(t)
	_, err := tb.Insert(a, 1)
	require.NoError(t, err)

	next, err := tb.Remove(tb.Front())
	require.NoError(t, err)
	assert.Equal(t, a, next.Value.fd)
	assert.Equal(t, 2, tb.Len())
	assert.True(t, isFDValid(lfd))
}

func TestTableCloseAll(t *testing.T) {
	lfd := newSocketFd(t)
	tb := NewTable(lfd, 64)

	a := newSocketFd(t)
	b := newSocketFd(t)
	_, err := tb.Insert(a, 1)
	require.NoError(t, err)
	_, err = tb.Insert(b, 2)
	require.NoError(t, err)

	require.NoError(t, tb.CloseAll())
	assert.Equal(t, 0, tb.Len())
	for _, fd := range []int{lfd, a, b} {
		assert.False(t, isFDValid(fd))
	}
	_, ok := tb.Lookup(a)
	assert.False(t, ok)
}
