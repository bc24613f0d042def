package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shuflovic/AI-bookshelf/internal/config"
	"github.com/shuflovic/AI-bookshelf/internal/httpapi"
	"github.com/shuflovic/AI-bookshelf/internal/research"
	"github.com/shuflovic/AI-bookshelf/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research API over HTTP",
	Long: `Serve exposes the research assistant as an HTTP API:

  POST /research        run a query, persist and return the result
  GET  /data.csv        download the research data file
  POST /clear           clear all saved research
  POST /clear/{topic}   clear one saved topic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(debugFlag)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		pub := newPublisher(log)
		defer pub.Close()

		run, err := newResearcher(log, pub, stepsFlag)
		if err != nil {
			return err
		}

		cfg := config.Get()
		st := store.NewCSVStore(cfg.DataFile, log)

		runner := func(ctx context.Context, query string) (*research.Result, error) {
			return run(ctx, query, nil)
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		return httpapi.NewServer(runner, st, log).ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5000)")
	serveCmd.Flags().IntVar(&stepsFlag, "steps", 0, "max agent steps per query (0 = default)")
	rootCmd.AddCommand(serveCmd)
}
