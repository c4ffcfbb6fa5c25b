package node

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fzft/go-static-server/config"
	"github.com/fzft/go-static-server/log"
	"github.com/fzft/go-static-server/proto"
	"github.com/fzft/go-static-server/stats"
	"go.uber.org/zap"
)

// Parser turns a complete request held in a connection's buffer into the
// response header followed by the first chunk of the file to send.
type Parser struct {
	root         string
	indexPage    string
	notFoundPage string
	errorPage    string
	defaultExt   string
	counters     *stats.Counters
}

func NewParser(cfg *config.Config, counters *stats.Counters) *Parser {
	return &Parser{
		root:         cfg.Root,
		indexPage:    cfg.IndexPage,
		notFoundPage: cfg.NotFoundPage,
		errorPage:    cfg.ErrorPage,
		defaultExt:   cfg.DefaultExt,
		counters:     counters,
	}
}

// resolve maps the request bytes to the resource to serve.
func (p *Parser) resolve(req []byte) (string, proto.Status) {
	target, ok := proto.RequestTarget(req)
	if !ok {
		return p.errorPage, proto.StatusInvalid
	}
	log.Logger.Debug("parsed url", zap.String("url", target))

	// Substring check only; the path is not canonicalised.
	if strings.Contains(target, "..") {
		log.Logger.Debug("url was dangerous", zap.String("url", target))
		return p.errorPage, proto.StatusInvalid
	}
	if target == "/" {
		return p.indexPage, proto.StatusOK
	}
	return target, proto.StatusOK
}

// buildURL joins tail to the root, adding the default extension when tail
// has none.
func (p *Parser) buildURL(tail string) string {
	if path.Ext(tail) == "" {
		tail += p.defaultExt
	}
	return filepath.Join(p.root, filepath.FromSlash(tail))
}

// open opens tail under the root. Directories are not servable.
func (p *Parser) open(tail string) (*os.File, os.FileInfo, string, error) {
	url := p.buildURL(tail)
	f, err := os.Open(url)
	if err != nil {
		return nil, nil, url, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, url, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, url, &os.PathError{Op: "open", Path: url, Err: syscall.EISDIR}
	}
	return f, info, url, nil
}

// Parse rewrites conn's buffer with the response header and as much of the
// body as fits, and leaves the opened file as the connection's source.
// The error pages must exist; if they do not, Parse fails and the
// connection cannot be answered.
func (p *Parser) Parse(conn *Connection) error {
	log.Logger.Debug("parse started", zap.Object("client", conn))

	tail, status := p.resolve(conn.buf.Bytes())
	file, info, url, err := p.open(tail)
	if err != nil {
		log.Logger.Debug("page is missing", zap.String("url", url), zap.Error(err))
		if status == proto.StatusOK {
			status = proto.StatusNotFound
		}
		file, info, url, err = p.open(p.notFoundPage)
		if err != nil {
			return fmt.Errorf("open not found page: %w", err)
		}
	}
	if status != proto.StatusOK {
		p.counters.IncrErrors()
	}

	header := proto.AppendHeader(make([]byte, 0, 128), status, proto.ContentType(url), info.Size())
	conn.buf.Reset()
	if err := conn.buf.Append(header); err != nil {
		file.Close()
		return err
	}

	conn.source, conn.url, conn.status, conn.eof = file, url, status, false
	if err := conn.fill(); err != nil {
		return err
	}

	log.Logger.Info("client accessed url",
		zap.Object("client", conn),
		zap.String("url", url),
		zap.Int("status", int(status)),
		zap.Int64("bytes", info.Size()))
	return nil
}
