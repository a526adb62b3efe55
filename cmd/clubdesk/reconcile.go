package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"clubdesk/internal/cache"
	"clubdesk/internal/config"
	"clubdesk/internal/entitlements"
	"clubdesk/internal/logging"
	"clubdesk/internal/reconcile"
	"clubdesk/internal/store"
)

func newReconcileCommand() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair usage counters and report or expire stale subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("CD_CONFIG"))
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			st, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if err := store.Migrate(ctx, st.DB()); err != nil {
				return err
			}

			svc := reconcile.NewService(st, logger)
			svc.Apply = apply || cfg.Reconcile.Apply
			if cfg.Redis.URL != "" {
				c, err := cache.New(cfg.Redis.URL, cfg.Cache.TTL)
				if err != nil {
					return err
				}
				defer c.Close()
				svc.Invalidator = entitlements.NewService(st, c, nil, logger)
			}

			report, err := svc.Run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "mark stale subscriptions expired instead of only reporting them")
	return cmd
}
