/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command cellctl calls a cellradar MCP tool and prints its flattened result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/mcp"
	"github.com/carverauto/cellradar/pkg/version"
)

// Dracula theme colors.
const (
	draculaCyan    = "#8BE9FD"
	draculaGreen   = "#50FA7B"
	draculaRed     = "#FF5555"
	draculaComment = "#6272A4"
)

const errorPrefix = "error: "

var errUsage = errors.New("usage: cellctl [flags] <tool> [arg]")

type styles struct {
	ok, failed, tool, hint lipgloss.Style
}

func newStyles() styles {
	return styles{
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color(draculaGreen)).Bold(true),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaRed)).Bold(true),
		tool:   lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan)),
		hint:   lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment)),
	}
}

func main() {
	failed, err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if failed {
		os.Exit(1)
	}
}

// run reports whether the tool call failed. err is only set for usage and
// flag problems.
func run(args []string, stdout, stderr io.Writer) (bool, error) {
	fs := flag.NewFlagSet("cellctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	server := fs.String("server", "http://127.0.0.1:9000/mcp", "MCP endpoint URL")
	apiKey := fs.String("api-key", os.Getenv("CELLRADAR_API_KEY"), "API key sent as X-API-Key")
	timeout := fs.Duration("timeout", 60*time.Second, "Per-call timeout")
	list := fs.Bool("list", false, "List the server's tools and exit")
	showVersion := fs.Bool("version", false, "Print the version and exit")
	debug := fs.Bool("debug", false, "Log requests to stderr")

	if err := fs.Parse(args); err != nil {
		return false, err
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.GetFullVersion())

		return false, nil
	}

	level := zerolog.WarnLevel
	if *debug {
		level = zerolog.DebugLevel
	}

	log := logger.NewWriterLogger(stderr, level)
	client := mcp.NewClient(*server, log, mcp.WithAPIKey(*apiKey))
	st := newStyles()

	if *list {
		return listTools(client, *timeout, stdout, st)
	}

	if fs.NArg() == 0 || fs.NArg() > 2 {
		return false, errUsage
	}

	tool, input := fs.Arg(0), fs.Arg(1)
	out := mcp.NewAdapter(client, *timeout, log).Invoke(tool, input)

	failed := strings.HasPrefix(out, errorPrefix)
	fmt.Fprintln(stderr, statusLine(st, tool, failed))
	fmt.Fprintln(stdout, out)

	return failed, nil
}

func listTools(client *mcp.Client, timeout time.Duration, stdout io.Writer, st styles) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tools, err := client.ListTools(ctx)
	if err != nil {
		fmt.Fprintln(stdout, st.failed.Render("✗")+" "+err.Error())

		return true, nil
	}

	for _, t := range tools {
		fmt.Fprintf(stdout, "%s  %s\n", st.tool.Render(t.Name), st.hint.Render(t.Description))
	}

	return false, nil
}

func statusLine(st styles, tool string, failed bool) string {
	if failed {
		return st.failed.Render("✗") + " " + st.tool.Render(tool)
	}

	return st.ok.Render("✓") + " " + st.tool.Render(tool)
}
