// Command toolbox lists, describes and calls the tools compiled into the binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/skosovsky/toolbox/internal/demotools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, a := newRootCmd()
	err := execute(ctx, root, a)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
