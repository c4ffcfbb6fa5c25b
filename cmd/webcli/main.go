// Command webcli fetches pages from the static server, either the paths given
// as arguments, one path per line on stdin, or interactively.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fzft/go-static-server/client"
	"github.com/fzft/go-static-server/proto"
	"github.com/fzft/go-static-server/version"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

const (
	HisFileEnv     = "WEBCLI_HISTFILE"
	HisFileDefault = ".webcli_history"
)

type CliConfig struct {
	host string
	port int
	body bool
}

type WebCli struct {
	config *CliConfig
	client *client.Client
	out    io.Writer
}

func main() {
	cli := &WebCli{config: &CliConfig{}, out: os.Stdout}

	fs := flag.NewFlagSet("webcli", flag.ExitOnError)
	fs.StringVar(&cli.config.host, "h", "127.0.0.1", "Server hostname")
	fs.IntVar(&cli.config.port, "p", 8080, "Server port")
	fs.BoolVar(&cli.config.body, "body", false, "Print response bodies")
	showVersion := fs.Bool("version", false, "Output version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "webcli %s\n\nUsage: webcli [OPTIONS] [path ...]\n", version.String())
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("webcli %s\n", version.String())
		return
	}

	cli.client = client.New(cli.config.host, cli.config.port)
	if err := cli.Run(fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run fetches the given paths, or reads paths from stdin when none are given.
func (cli *WebCli) Run(paths []string) error {
	if len(paths) > 0 {
		var failed bool
		for _, p := range paths {
			if err := cli.fetch(p); err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed = true
			}
		}
		if failed {
			return errors.New("some requests failed")
		}
		return nil
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return cli.repl()
	}
	return cli.pipe(os.Stdin)
}

func (cli *WebCli) fetch(path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, err := cli.client.Get(path)
	if err != nil {
		return err
	}
	cli.print(path, resp)
	return nil
}

func (cli *WebCli) print(path string, resp *proto.Response) {
	fmt.Fprintf(cli.out, "%s %s %s %d bytes\n", path, resp.Status, resp.Header["Content-Type"], len(resp.Body))
	if cli.config.body {
		cli.out.Write(resp.Body)
		if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
			fmt.Fprintln(cli.out)
		}
	}
}

// pipe fetches one path per input line.
func (cli *WebCli) pipe(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := cli.fetch(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return scanner.Err()
}

func (cli *WebCli) repl() error {
	line := NewLineNoise()
	defer line.Close()

	history := getDotfilePath(HisFileEnv, HisFileDefault)
	if history != "" {
		line.HistoryLoad(history)
	}

	prompt := fmt.Sprintf("%s> ", cli.client.Addr)
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		line.AppendHistory(input)
		if err := cli.fetch(input); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if history != "" {
		return line.HistorySave(history)
	}
	return nil
}

func getDotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, dotFilename)
	}
	return ""
}
