package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Simplici0/waterflow/internal/config"
	"github.com/Simplici0/waterflow/internal/hydraulics"
	"github.com/Simplici0/waterflow/internal/report"
)

func main() {
	systemPath := flag.String("system", "", "path to a YAML system file (default: PVC schedule 80 into HDPE SDR11)")
	logLevel := flag.String("log-level", "warn", "log level: debug|info|warn|error")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLevel(*logLevel)}))
	slog.SetDefault(logger)

	os.Exit(run(os.Stdin, os.Stdout, *systemPath))
}

func run(stdin io.Reader, stdout io.Writer, systemPath string) int {
	sys, err := config.SystemOrDefault(systemPath)
	if err != nil {
		slog.Error("failed to load system", "path", systemPath, "err", err)
		return 1
	}
	slog.Debug("system loaded", "supply", sys.Supply.Name, "household", sys.Household.Name)

	in, err := readInput(stdin, stdout)
	if err != nil {
		if errors.Is(err, hydraulics.ErrInvalidInput) {
			fmt.Fprintln(stdout, "Please enter valid numbers.")
			return 2
		}
		slog.Error("failed to read input", "err", err)
		return 1
	}

	result, err := hydraulics.Calculate(in, sys)
	switch {
	case errors.Is(err, hydraulics.ErrInvalidInput):
		fmt.Fprintf(stdout, "Please enter valid numbers: %v\n", err)
		return 2
	case err != nil:
		fmt.Fprintf(stdout, "Cannot compute pressure: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, report.Line(result.Totals.Pressure))
	return 0
}
