package main

import (
	"fmt"
	"os"

	"github.com/ahmed-sakil/asian-school/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
