package main

import (
	"context"
	"os"

	"github.com/goliatone/go-formguard/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.StdIO(), os.Args[1:]))
}
