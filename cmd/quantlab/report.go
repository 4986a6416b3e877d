package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/config"
)

var reportCmd = &cobra.Command{
	Use:   "report [symbol...]",
	Short: "Generate daily market reports",
	Long: `Build the daily report for the last session of each symbol and store it in
the report archive. Without arguments every configured asset is reported.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, log, err := setup()
	defer log.Sync()
	if err != nil {
		return err
	}

	assets := a.Config().Assets
	if len(args) > 0 {
		assets = make([]config.Asset, len(args))
		for i, arg := range args {
			asset, ok := a.Config().LookupAsset(arg)
			if !ok {
				asset = config.Asset{Name: arg, Symbol: arg}
			}
			assets[i] = asset
		}
	}

	var errs []error
	for _, asset := range assets {
		r, path, err := a.DailyReport(cmd.Context(), asset)
		if err != nil {
			log.Warn("daily report failed", zap.String("symbol", asset.Symbol), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", asset.Symbol, err))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), r.Text())
		log.Debug("report stored", zap.String("path", path))
	}

	if len(errs) == len(assets) {
		return errors.Join(errs...)
	}
	if len(errs) > 0 {
		log.Warn("some reports failed", zap.Int("failed", len(errs)), zap.Int("total", len(assets)))
	}
	return nil
}
