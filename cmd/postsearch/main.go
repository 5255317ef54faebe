package main

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/cli"
)

func main() {
	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
