package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mano8/govedirect/serialport"
	"github.com/mano8/govedirect/supervisor"
	"github.com/mano8/govedirect/vedirect"
)

func newStreamCmd(cfgFile *string) *cobra.Command {
	var frameTimeout, connTimeout time.Duration
	var maxBlocks int

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream decoded VE.Direct blocks to stdout as NDJSON",
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
			if err := s.Open(); err != nil {
				log.WithField("source", cfg.SourceName).Warnf("initial open failed, will reconnect: %v", err)
			}

			enc := json.NewEncoder(os.Stdout)
			return s.ReadCallback(func(b *vedirect.Block) {
				if b == nil {
					return
				}
				if err := enc.Encode(b); err != nil {
					log.Errorf("encode block: %v", err)
				}
			}, frameTimeout, connTimeout, maxBlocks)
		},
	}

	cmd.Flags().DurationVar(&frameTimeout, "frame-timeout", 5*time.Second, "max time to wait for one block before treating the connection as stalled")
	cmd.Flags().DurationVar(&connTimeout, "reconnect-timeout", 30*time.Second, "max time a reconnect sweep may take before giving up")
	cmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "stop after this many blocks (0 = unbounded)")
	return cmd
}
