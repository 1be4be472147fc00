// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
)

// Handler executes one console line and reports the prompt to show next.
type Handler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type Options struct {
	EchoInput   bool
	HistoryFile string
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultOptions() *Options {
	return &Options{}
}

// Console runs the interactive command line until the input ends or Stop is called.
type Console struct {
	Started chan struct{}
	options *Options
	rl      *readline.Instance
	closed  chan struct{}
}

func NewConsole(options *Options) *Console {
	if options == nil {
		options = DefaultOptions()
	}
	opts := *options
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Console{
		Started: make(chan struct{}),
		options: &opts,
		closed:  make(chan struct{}),
	}
}

// RestorePrompt redraws the prompt after asynchronous output was written.
func (c *Console) RestorePrompt() {
	if c.rl != nil {
		c.rl.Refresh()
	}
}

// Stop interrupts a running console and waits for Run to return.
func (c *Console) Stop() {
	<-c.Started
	// readline.Close() can block here; an ETX on stdin unblocks the pending Readline() instead.
	_, _ = c.options.Stdin.WriteString("\003\n")
	_ = c.options.Stdin.Close()
	logger.Tracef("waiting for console to stop")
	<-c.closed
}

func (c *Console) Run(handler Handler) error {
	defer logger.Debugf("console exit")
	defer close(c.closed)

	for _, f := range []*os.File{c.options.Stdin, c.options.Stdout} {
		fd := int(f.Fd())
		if !readline.IsTerminal(fd) {
			continue
		}
		state, err := readline.GetState(fd)
		if err != nil {
			close(c.Started)
			return errors.Wrap(err, "get terminal state")
		}
		defer func() {
			_ = readline.Restore(fd, state)
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            handler.GetPrompt(),
		HistoryFile:       c.options.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             c.options.Stdin,
		Stdout:            c.options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			return r, r != readline.CharCtrlZ
		},
	})
	if err != nil {
		close(c.Started)
		return errors.Wrap(err, "start readline")
	}
	defer func() {
		_ = rl.Close()
	}()
	c.rl = rl
	close(c.Started)

	stdout := c.options.Stdout
	for {
		rl.SetPrompt(handler.GetPrompt())
		line, err := rl.Readline()

		if len(line) > 0 && line[0] == readline.CharInterrupt {
			return nil
		} else if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue // Ctrl-C while editing only drops the current line.
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if c.options.EchoInput {
			if _, err := stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		cmd := strings.TrimSpace(line)
		if len(cmd) == 0 || strings.HasPrefix(cmd, "#") {
			continue
		}

		err = handler.HandleCommand(cmd, rl.Stdout())
		_ = stdout.Sync()
		if err != nil {
			return err
		}
	}
}

// OnStdout restores the prompt after log output was printed.
func (c *Console) OnStdout() {
	c.RestorePrompt()
}
