package main

import (
	"os"

	"github.com/peterh/liner"
)

// LineNoise is the interactive prompt with persistent history.
type LineNoise struct {
	*liner.State
}

func NewLineNoise() *LineNoise {
	ln := &LineNoise{liner.NewLiner()}
	ln.SetCtrlCAborts(true)
	return ln
}

func (ln *LineNoise) HistoryLoad(filepath string) error {
	f, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ln.ReadHistory(f)
	return err
}

func (ln *LineNoise) HistorySave(filepath string) error {
	f, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ln.WriteHistory(f)
	return err
}
