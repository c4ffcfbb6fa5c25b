package node

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fzft/go-static-server/client"
	"github.com/fzft/go-static-server/config"
	"github.com/stretchr/testify/require"
)

const (
	indexBody  = "<html>index</html>\n"
	aboutBody  = "<html>about</html>\n"
	err404Body = "<html>not found</html>\n"
	err500Body = "<html>server error</html>\n"
	styleBody  = "body { color: red; }\n"
	secretBody = "top secret\n"
	bigSize    = 1<<20 + 123
)

// testRoot lays out a web root with the error pages, a few pages, a large
// binary file and a secret file next to (outside of) the root.
func testRoot(t *testing.T) string {
	t.Helper()
	parent := t.TempDir()
	root := filepath.Join(parent, "www")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	files := map[string]string{
		"index.html":      indexBody,
		"about.html":      aboutBody,
		"err404.html":     err404Body,
		"err500.html":     err500Body,
		"style.css":       styleBody,
		"docs/guide.html": "<html>guide</html>\n",
		"empty.txt":       "",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}

	big := make([]byte, bigSize)
	_, err := rand.Read(big)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.html"), []byte(secretBody), 0o644))
	return root
}

func testConfig(root string, workers int) *config.Config {
	cfg := config.Default()
	cfg.Root = root
	cfg.Address = "127.0.0.1"
	cfg.Workers = workers
	return cfg
}

type testServer struct {
	*Server
	client *client.Client
	cancel context.CancelFunc
	errCh  chan error
}

// startServer listens and runs s; prepare runs between Listen and Run.
func startServer(t *testing.T, cfg *config.Config, prepare func(s *Server)) *testServer {
	t.Helper()
	s := NewServer(cfg)
	require.NoError(t, s.Listen())
	if prepare != nil {
		prepare(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{
		Server: s,
		client: client.New("127.0.0.1", s.Port()),
		cancel: cancel,
		errCh:  make(chan error, 1),
	}
	go func() {
		ts.errCh <- s.Run(ctx)
	}()
	t.Cleanup(func() { ts.stop(t) })
	return ts
}

// stop cancels the server and waits for Run to return. It is safe to call
// more than once.
func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	if ts.cancel == nil {
		return
	}
	ts.cancel()
	ts.cancel = nil
	select {
	case err := <-ts.errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
