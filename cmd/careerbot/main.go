// careerbot - career assistant bot server
package main

import (
	"os"

	"github.com/ashureev/careerbot/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
