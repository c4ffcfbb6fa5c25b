package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an optional YAML file with server tunables. Values from
// the command line always win over the file.
const EnvConfigFile = "WEBSERVER_CONFIG"

const (
	DefaultBufferSize = 1 << 12
	DefaultBacklog    = 10
	DefaultPort       = 0

	minBufferSize = 512
)

var (
	ErrUsage      = errors.New("invalid arguments")
	ErrHelp       = errors.New("help requested")
	ErrBadAddress = errors.New("cannot assign requested address")
)

// Config holds everything the server needs at startup.
type Config struct {
	Root    string `yaml:"-"`
	Address string `yaml:"address"` // empty binds every IPv4 address
	Port    int    `yaml:"port"`    // 0 lets the OS pick
	Verbose bool   `yaml:"verbose"`

	// BufferSize caps both the request size and each response chunk.
	BufferSize int `yaml:"buffer_size"`
	Backlog    int `yaml:"backlog"`
	// Workers > 0 moves file reads off the event loop onto a bounded pool.
	Workers int `yaml:"workers"`

	IndexPage    string `yaml:"index_page"`
	NotFoundPage string `yaml:"not_found_page"`
	ErrorPage    string `yaml:"error_page"`
	DefaultExt   string `yaml:"default_ext"`
}

func Default() *Config {
	return &Config{
		Port:         DefaultPort,
		BufferSize:   DefaultBufferSize,
		Backlog:      DefaultBacklog,
		Workers:      0,
		IndexPage:    "/index.html",
		NotFoundPage: "/err404.html",
		ErrorPage:    "/err500.html",
		DefaultExt:   ".html",
	}
}

// Load builds the configuration from defaults, the optional tunables file and
// the command line, in that order.
func Load(args []string) (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path on c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseArgs applies "prog root [-v] [-a ip-address] [-p port]".
func (c *Config) ParseArgs(args []string) error {
	if len(args) < 2 || len(args) > 7 {
		return ErrUsage
	}
	if args[1] == "--help" {
		return ErrHelp
	}
	c.Root = args[1]

	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "-a":
			if i+1 == len(args) {
				return ErrUsage
			}
			c.Address = args[i+1]
			i++
		case "-p":
			if i+1 == len(args) {
				return ErrUsage
			}
			port, err := strconv.Atoi(args[i+1])
			if err != nil || port < 0 || port > 65535 {
				return ErrUsage
			}
			c.Port = port
			i++
		case "-v":
			c.Verbose = true
		default:
			return ErrUsage
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrUsage
	}
	if c.BufferSize < minBufferSize {
		return fmt.Errorf("buffer_size %d is below %d", c.BufferSize, minBufferSize)
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("invalid backlog: %d", c.Backlog)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	for _, page := range []string{c.IndexPage, c.NotFoundPage, c.ErrorPage} {
		if len(page) < 2 || page[0] != '/' {
			return fmt.Errorf("invalid page name %q", page)
		}
	}
	return nil
}

// IP returns the address to bind. A nil IP with a nil error means any IPv4
// address.
func (c *Config) IP() (net.IP, error) {
	if c.Address == "" {
		return nil, nil
	}
	ip := net.ParseIP(c.Address)
	if ip == nil {
		return nil, fmt.Errorf("%w: %s", ErrBadAddress, c.Address)
	}
	return ip, nil
}

func Usage(prog string) string {
	return fmt.Sprintf("Usage: %s root [-v] [-a ip-address] [-p port]\n", prog)
}

func Help(prog string) string {
	return "Simple HTML web server\n" + Usage(prog) + "\n" +
		"root\t\tThe path to the root directory of the web server\n" +
		"-v\t\tEnables verbose output, printing additional client details\n" +
		"-a <ip-address>\tAn IPv4 or IPv6 address to be used for the web server [defaults to any open]\n" +
		"-p <port>\tThe port number for accessing the web server [defaults to a random unused port]\n"
}
