package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/replica-sync/extract"
)

var backfillDeviceID string

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Load the full transaction history into the target store, oldest first",
	RunE:  runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillDeviceID, "device-id", "", "device id to backfill under (defaults to the configured deviceId)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := wire(ctx, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	deviceID := backfillDeviceID
	if deviceID == "" {
		deviceID = a.cfg.DeviceID
	}

	ranger := extract.Transactions{DB: a.db.DB}
	result, err := a.engine.RunTransactionBackfill(ctx, deviceID, ranger)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	fmt.Printf("backfill complete: %d records synced, %d poison rows, elapsed %s\n",
		result.RecordsSynced, result.PoisonRows, result.Elapsed)
	return nil
}
