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
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/openthread/otns-phystats/logger"
)

const (
	defaultTermWidth = 80
	minTermWidth     = 40
)

type Help struct {
	termWidth     uint
	maxCmdWidth   uint
	commands      map[string]string
	commandsShort map[string]string
}

var (
	cmdHeaderPattern  = regexp.MustCompile("^### .+")
	linkTargetPattern = regexp.MustCompile(`\(#[a-z-]+\)`)
)

// Embed the CLI help file as a static resource.
//
//go:embed README.md
var cliHelpFile string

func newHelp() Help {
	h := Help{
		termWidth:     defaultTermWidth,
		commands:      make(map[string]string),
		commandsShort: make(map[string]string),
	}
	h.parseHelpFile()
	h.update()
	return h
}

// update takes into account the current size of the user's terminal.
func (help *Help) update() {
	fdTerm := int(os.Stdout.Fd()) // Windows platform requires cast to int.
	if !term.IsTerminal(fdTerm) {
		return
	}
	width, _, err := term.GetSize(fdTerm)
	if err != nil {
		logger.Debugf("could not get terminal size: %v", err)
		return
	}
	if width < minTermWidth {
		width = minTermWidth
	}
	help.termWidth = uint(width)
}

func (help *Help) commandNames() []string {
	cmds := make([]string, 0, len(help.commandsShort))
	for k := range help.commandsShort {
		cmds = append(cmds, k)
	}
	sort.Strings(cmds)
	return cmds
}

// outputGeneralHelp lists all commands with their one-line summary.
func (help *Help) outputGeneralHelp() string {
	help.update()
	var sb strings.Builder
	descWidth := help.termWidth - help.maxCmdWidth - 2
	for _, c := range help.commandNames() {
		lines := strings.Split(wordwrap.WrapString(help.commandsShort[c], descWidth), "\n")
		for i, line := range lines {
			name := ""
			if i == 0 {
				name = c
			}
			sb.WriteString(fmt.Sprintf("%-*s  %s\n", int(help.maxCmdWidth), name, line))
		}
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	return help.outputHelp([]string{command})
}

// outputHelp renders the full help of one or more commands, in given order.
func (help *Help) outputHelp(commands []string) string {
	help.update()
	var sb strings.Builder
	for _, cmd := range commands {
		explanation, ok := help.commands[cmd]
		if !ok {
			explanation = "(Non-existent command.)"
		}
		explWrapped := strings.Split(wordwrap.WrapString(explanation, help.termWidth-2), "\n")
		for _, line := range explWrapped {
			if len(line) == 0 {
				continue
			}
			if line == cmd {
				sb.WriteString(line + "\n")
			} else {
				sb.WriteString("  " + line + "\n")
			}
		}
	}
	return sb.String()
}

func (help *Help) parseHelpFile() {
	indentString := "    "
	lines := strings.Split(cliHelpFile, "\n")
	activeCmd := ""
	indent := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)

		if len(line) == 0 {
			continue
		}

		if line == "```bash" {
			line = "Example:"
			indent = 2
		} else if strings.HasPrefix(line, "```") {
			continue
		} else if cmdHeaderPattern.MatchString(line) {
			activeCmd = strings.TrimSpace(line[strings.Index(line, " ")+1:])
			help.commands[activeCmd] = ""
			help.commandsShort[activeCmd] = ""
			if uint(len(activeCmd)) > help.maxCmdWidth {
				help.maxCmdWidth = uint(len(activeCmd))
			}
			line = activeCmd
			indent = 0
		}

		if len(activeCmd) == 0 {
			continue
		}
		line = markdownUnquote(line)
		help.commands[activeCmd] += indentString[0:indent] + line + "\n"
		if line != activeCmd && len(help.commandsShort[activeCmd]) == 0 {
			firstSentence := line
			if idx := strings.Index(line, ". "); idx > 0 {
				firstSentence = line[:idx+1]
			}
			help.commandsShort[activeCmd] = firstSentence
		}
	}
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = strings.ReplaceAll(md, "`", "")
	md = linkTargetPattern.ReplaceAllString(md, "")
	return md
}
