// cmd/flagctl/main.go
//
// flagctl – offline inspection of feature flag files.
//
//	flagctl validate --file conf/flags.yaml
//	flagctl eval     --file conf/flags.yaml --principal u-42 --role customer --tenant acme
//	flagctl bucket   --flag betaCheckout --principal u-42 --percentage 10
//
// eval runs the same Evaluator the web server uses, minus the database
// override layer, so the output is what a request would see with only the
// static file in play.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flagctl",
		Short:         "Inspect storefront feature flags",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(validateCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(bucketCmd())
	return root
}
