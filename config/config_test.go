package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "root only",
			args: []string{"ws", "/srv"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/srv", c.Root)
				assert.Equal(t, 0, c.Port)
				assert.False(t, c.Verbose)
			},
		},
		{
			name: "all flags",
			args: []string{"ws", "/srv", "-v", "-a", "::1", "-p", "8080"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "::1", c.Address)
				assert.Equal(t, 8080, c.Port)
				assert.True(t, c.Verbose)
			},
		},
		{name: "no root", args: []string{"ws"}, wantErr: ErrUsage},
		{name: "too many", args: []string{"ws", "/srv", "-v", "-v", "-v", "-v", "-v", "-v"}, wantErr: ErrUsage},
		{name: "help", args: []string{"ws", "--help"}, wantErr: ErrHelp},
		{name: "missing address", args: []string{"ws", "/srv", "-a"}, wantErr: ErrUsage},
		{name: "missing port", args: []string{"ws", "/srv", "-p"}, wantErr: ErrUsage},
		{name: "bad port", args: []string{"ws", "/srv", "-p", "http"}, wantErr: ErrUsage},
		{name: "port out of range", args: []string{"ws", "/srv", "-p", "70000"}, wantErr: ErrUsage},
		{name: "unknown flag", args: []string{"ws", "/srv", "-x"}, wantErr: ErrUsage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			err := c.ParseArgs(tc.args)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Root = "/srv"
	assert.NoError(t, c.Validate())

	c.BufferSize = 16
	assert.Error(t, c.Validate())

	c = Default()
	c.Root = "/srv"
	c.Workers = -1
	assert.Error(t, c.Validate())

	c = Default()
	c.Root = "/srv"
	c.NotFoundPage = "err404.html"
	assert.Error(t, c.Validate())
}

func TestIP(t *testing.T) {
	c := Default()
	ip, err := c.IP()
	assert.NoError(t, err)
	assert.Nil(t, ip)

	c.Address = "127.0.0.1"
	ip, err = c.IP()
	require.NoError(t, err)
	assert.NotNil(t, ip.To4())

	c.Address = "::1"
	ip, err = c.IP()
	require.NoError(t, err)
	assert.Nil(t, ip.To4())

	c.Address = "localhost"
	_, err = c.IP()
	assert.ErrorIs(t, err, ErrBadAddress)
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer_size: 8192\nworkers: 4\nport: 9000\n"), 0o644))
	t.Setenv(EnvConfigFile, path)

	c, err := Load([]string{"ws", dir, "-p", "9100"})
	require.NoError(t, err)
	assert.Equal(t, 8192, c.BufferSize)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, 9100, c.Port, "command line overrides the file")
	assert.Equal(t, "/index.html", c.IndexPage)
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1,2"), 0o644))
	t.Setenv(EnvConfigFile, path)

	_, err := Load([]string{"ws", dir})
	assert.Error(t, err)

	t.Setenv(EnvConfigFile, filepath.Join(dir, "missing.yaml"))
	_, err = Load([]string{"ws", dir})
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	assert.Equal(t, "Usage: ws root [-v] [-a ip-address] [-p port]\n", Usage("ws"))
	assert.Contains(t, Help("ws"), Usage("ws"))
}
