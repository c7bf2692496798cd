// Package cmd implements the CLI command dispatcher (spec §6), built on
// spf13/cobra following termfx-morfx's demo/cmd/main.go root/sub command
// tree shape.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInvalidCreate signals a malformed `occ create` invocation, mapped to
// exit code -1 by Execute (spec §6).
var errInvalidCreate = errors.New("invalid create invocation")

// NewRootCmd builds the `occ` command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "occ",
		Short: "OvercastC project tool",
		Long:  "occ creates, builds, and cleans OvercastC projects.",
	}
	root.AddCommand(newCreateCmd(), newBuildCmd(), newCleanCmd())
	return root
}

// Execute runs the command tree and translates the result into spec §6's
// exit codes: 0 success, 1 option parse error or build failure, -1 invalid
// create invocation.
func Execute() int {
	root := NewRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errInvalidCreate) {
			return -1
		}
		return 1
	}
	return 0
}
