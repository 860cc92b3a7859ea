package main

import (
	"os"

	"github.com/wonny/rsqm/cmd/rsqm/commands"
)

// main is the entry point for the RSQM CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/rsqm [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
