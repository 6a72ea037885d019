package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evgrid/chargeq/config"
	"github.com/evgrid/chargeq/infra/history"
	"github.com/evgrid/chargeq/pkg/export"
)

var (
	historyFormat    string
	historyStation   string
	historyRequester string
	historyDate      string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Export the booking history archive as JSON or CSV",
	RunE:  exportHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "json", "output format: json or csv")
	historyCmd.Flags().StringVarP(&historyStation, "station", "s", "", "filter by station id")
	historyCmd.Flags().StringVarP(&historyRequester, "requester", "r", "", "filter by requester id")
	historyCmd.Flags().StringVarP(&historyDate, "date", "d", "", "filter by booking date (YYYY-MM-DD)")
	rootCmd.AddCommand(historyCmd)
}

func exportHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history archive is disabled in the configuration")
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	bookings, err := store.Query(cmd.Context(), history.Query{
		RequesterID: historyRequester,
		StationID:   historyStation,
		Date:        historyDate,
	})
	if err != nil {
		return err
	}
	switch historyFormat {
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), bookings)
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), bookings)
	default:
		return fmt.Errorf("unsupported format %q", historyFormat)
	}
}
