// Package main is the entry point for the game-price-tracker.
package main

import (
	"os"

	"github.com/donaldgifford/game-price-tracker/cmd/game-price-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
