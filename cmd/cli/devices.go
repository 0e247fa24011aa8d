package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/db"
)

var devicesSummary bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices discovered by past scans",
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesSummary, "summary", false,
		"print store-wide counts instead of the device table")

	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if devicesSummary {
		stats, err := db.NewStatsRepository(database).Collect(ctx)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Scans", "Devices", "Live", "Findings", "High")
		_ = table.Append([]string{
			strconv.Itoa(stats.TotalScans),
			strconv.Itoa(stats.TotalDevices),
			strconv.Itoa(stats.LiveDevices),
			strconv.Itoa(stats.TotalFindings),
			strconv.Itoa(stats.HighFindings),
		})
		_ = table.Render()
		return nil
	}

	devices, err := db.NewDeviceRepository(database).List(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		cmd.Println("No devices recorded yet. Run a scan first.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("IP", "MAC", "Vendor", "OS", "Status", "Last Seen")
	for _, d := range devices {
		mac, vendor, os := "", "", ""
		if d.MAC != nil {
			mac = d.MAC.String()
		}
		if d.Vendor != nil {
			vendor = *d.Vendor
		}
		if d.OS != nil {
			os = *d.OS
		}
		_ = table.Append([]string{
			d.IP.String(), mac, vendor, os, d.Status,
			d.LastSeen.Format("2006-01-02 15:04:05"),
		})
	}
	_ = table.Render()
	return nil
}
