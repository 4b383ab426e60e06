package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mvaleed/musicidx/internal/config"
	"github.com/mvaleed/musicidx/internal/engine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes the CLI with args (without the program name) and returns the
// exit status.
func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) != 3 {
		printUsage(stdout)
		return 0
	}

	cfg, err := config.FromEnv(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	e := engine.New(
		engine.WithLogger(logger),
		engine.WithLoadOptions(cfg.LoadOptions()...),
	)
	if err := e.Run(args[0], args[1], args[2]); err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Uso incorreto. Exemplo:")
	fmt.Fprintln(w, "  musicidx musicas.txt entrada.txt saida.txt")
}
