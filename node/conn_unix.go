//go:build linux
// +build linux

package node

import (
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// close shuts the socket down, closes it and releases the content source.
func (c *Connection) close() error {
	var err error
	if !c.listener {
		// ENOTCONN is expected once the peer went away.
		_ = unix.Shutdown(c.fd, unix.SHUT_RDWR)
	}
	if cerr := unix.Close(c.fd); cerr != nil {
		err = multierr.Append(err, os.NewSyscallError("close", cerr))
	}
	if c.source != nil {
		err = multierr.Append(err, c.source.Close())
		c.source = nil
	}
	return err
}
