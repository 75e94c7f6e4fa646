package main

import (
	"context"
	"os"

	"github.com/example/fsmgate/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
