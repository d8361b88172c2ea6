package main

import (
	"fmt"
	"os"

	"github.com/fleetops/igor/internal/cli"
	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/fleeterr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.Execute(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(fleeterr.ExitCodeFromError(err))
	}
}
