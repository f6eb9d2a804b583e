package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cameraapitest/pkg/command"
)

// runConsole dispatches stdin lines as the console source until EOF,
// "quit" or ctx is done. quit is called for "quit" and "exit".
func runConsole(ctx context.Context, in io.Reader, out io.Writer, registry *command.Registry, quit func()) {
	src := command.NewConsoleSource(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			slog.Info("Console requested shutdown")
			quit()
			return
		case "help", "?":
			printHelp(src, registry)
			continue
		}
		// Failures were already reported to src and logged by the registry.
		_ = registry.Dispatch(ctx, src, line)
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Console input failed", "error", err)
	}
}

func printHelp(src command.Source, registry *command.Registry) {
	for _, c := range registry.Commands() {
		src.SendMessage(fmt.Sprintf("/%s %s - %s", registry.Root(), c.Name, c.Description))
	}
	src.SendMessage("help - this list, quit - stop the server")
}
