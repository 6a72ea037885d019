package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evgrid/chargeq/config"
	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/model"
)

var gridStation string

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the bookable slot-window grid for a station",
	RunE:  printGrid,
}

func init() {
	gridCmd.Flags().StringVarP(&gridStation, "station", "s", "", "station id (defaults to every station)")
	rootCmd.AddCommand(gridCmd)
}

func printGrid(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stationList, err := cfg.BuildStations()
	if err != nil {
		return err
	}
	cat, err := catalog.New(cfg.Catalog, stationList, nil, nil)
	if err != nil {
		return err
	}
	date := time.Now().Format(model.DateLayout)
	for _, st := range cat.Stations() {
		if gridStation != "" && st.ID != gridStation {
			continue
		}
		cmd.Printf("%s (%s) %s-%s\n", st.ID, st.Name, st.Hours.Open, st.Hours.Close)
		instances, err := cat.Instances(st.ID, date, "")
		if err != nil {
			return err
		}
		for _, inst := range instances {
			cmd.Printf("  %-8s %-3s %6.1fkW  %s\n", inst.SlotID, inst.Level, inst.PowerKW, inst.Window)
		}
	}
	return nil
}
