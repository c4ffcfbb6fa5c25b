package version

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Set at build time with -ldflags "-X github.com/fzft/go-static-server/version.gitSHA1=...".
var (
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildID   string = "unknown"
	buildDate string = "unknown"
)

const Version = "1.0.0"

func GitSHA1() string {
	return gitSHA1
}

func GitDirty() string {
	return gitDirty
}

func BuildIDRaw() string {
	return buildID + buildDate + gitSHA1 + gitDirty
}

// String is the version with git commit and working tree status when available.
func String() string {
	version := Version
	if _, err := hex.DecodeString(gitSHA1); err == nil && strings.Trim(gitSHA1, "0") != "" {
		version = fmt.Sprintf("%s (git:%s", version, gitSHA1)
		if dirtyInt, err := strconv.ParseInt(gitDirty, 10, 64); err == nil && dirtyInt != 0 {
			version += "-dirty"
		}
		version += ")"
	}
	return version
}
