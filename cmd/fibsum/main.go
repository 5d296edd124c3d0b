// Command fibsum sums F(1)..F(N), sequentially or across a group of ranks.
package main

import (
	"context"
	"os"

	"github.com/agbru/fibsum/internal/app"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if app.HasVersionFlag(args[1:]) {
		app.PrintVersion(os.Stdout)
		return 0
	}

	application, err := app.New(args, os.Stderr)
	switch {
	case app.IsHelpError(err):
		return 0
	case err != nil:
		return app.ReportError(err, os.Stderr)
	}
	return application.Run(context.Background(), os.Stdout)
}
