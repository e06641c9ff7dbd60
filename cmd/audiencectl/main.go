// Command audiencectl runs the audience sizer's operations from a shell
// against the configured warehouse and language model.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

func main() {
	logger.SetRedactSecrets(true)
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
