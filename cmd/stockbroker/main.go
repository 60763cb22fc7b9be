package main

import (
	"os"

	"github.com/zappabad/stockbroker/cmd/stockbroker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
