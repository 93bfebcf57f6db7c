// Command govedirect opens one VE.Direct serial connection and either
// streams decoded blocks to stdout as NDJSON, or sweeps candidate ports
// until a deadline and reports the first one matching the configured
// identity tests.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var log = logrus.StandardLogger()

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "govedirect",
		Short: "Decode and supervise a Victron VE.Direct serial connection",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a govedirect YAML config file (required)")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(newStreamCmd(&cfgFile))
	root.AddCommand(newProbeCmd(&cfgFile))
	return root
}
