package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mano8/govedirect/serialport"
	"github.com/mano8/govedirect/supervisor"
)

func newProbeCmd(cfgFile *string) *cobra.Command {
	var sweepTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Search candidate serial ports, until --sweep-timeout, for a device matching the configured identity tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tests, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			transport := serialport.NewLinuxTransport(cfg.PortPath, cfg.Baud)
			s, err := supervisor.New(cfg, transport)
			if err != nil {
				return err
			}
			if err := s.Configure(tests); err != nil {
				return err
			}

			if err := s.Reconnect(sweepTimeout); err != nil {
				return fmt.Errorf("no matching device found: %w", err)
			}
			fmt.Printf("matched device on %s\n", transport.Path())
			return nil
		},
	}

	cmd.Flags().DurationVar(&sweepTimeout, "sweep-timeout", 15*time.Second, "max time to spend sweeping candidate ports")
	return cmd
}
