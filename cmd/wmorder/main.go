// Command wmorder builds the units of a wmake project tree in dependency
// order.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/wmorder/errors"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "wmorder:", err)
		os.Exit(errors.ExitCode(err))
	}
}
