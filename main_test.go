package main

import (
	"fmt"
	"os"
	"testing"

	"github.com/fzft/go-static-server/config"
	"github.com/fzft/go-static-server/version"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, int(unix.EADDRINUSE), exitCode(os.NewSyscallError("bind", unix.EADDRINUSE)))
	assert.Equal(t, int(unix.ENOENT), exitCode(&os.PathError{Op: "stat", Path: "/nope", Err: unix.ENOENT}))
	assert.Equal(t, int(unix.EACCES), exitCode(fmt.Errorf("wrapped: %w", unix.EACCES)))
	assert.Equal(t, 1, exitCode(fmt.Errorf("plain")))
}

func TestRunUsage(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	assert.Equal(t, 0, run([]string{"webserver"}))
	assert.Equal(t, 0, run([]string{"webserver", "--help"}))
	assert.Equal(t, 0, run([]string{"webserver", "/tmp", "1", "2", "3", "4", "5", "6", "7"}))
	assert.Equal(t, 0, run([]string{"webserver", t.TempDir(), "-p", "70000"}))

	t.Setenv(config.EnvConfigFile, t.TempDir()+"/missing.yaml")
	assert.Equal(t, 1, run([]string{"webserver", t.TempDir()}))
}

func TestRunMissingRoot(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	code := run([]string{"webserver", t.TempDir() + "/missing", "-a", "127.0.0.1", "-p", "0"})
	assert.Equal(t, int(unix.ENOENT), code)
}

func TestBuildInfo(t *testing.T) {
	info := buildInfo()
	assert.Contains(t, info, "v="+version.Version)
	assert.Contains(t, info, "sha="+version.GitSHA1()+":"+version.GitDirty())
	assert.Contains(t, info, "build="+version.BuildIDRaw())
}
