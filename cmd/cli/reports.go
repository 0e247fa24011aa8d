package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/export"
)

const defaultScanListLimit = 20

var reportsFlags struct {
	limit  int
	format string
	output string
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect scan history and export reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent scans",
	RunE:  runReportsList,
}

var reportsExportCmd = &cobra.Command{
	Use:   "export <devices|vulns|scans>",
	Short: "Export stored data as CSV or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsExport,
}

func init() {
	reportsListCmd.Flags().IntVar(&reportsFlags.limit, "limit", defaultScanListLimit,
		"maximum number of scans to list")
	reportsExportCmd.Flags().StringVar(&reportsFlags.format, "format", "csv",
		"export format (csv or json)")
	reportsExportCmd.Flags().StringVarP(&reportsFlags.output, "output", "o", "",
		"output file (default <kind>-<timestamp>.<format> under scanner.reports_dir)")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsExportCmd)
	rootCmd.AddCommand(reportsCmd)
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	scans, err := db.NewScanRepository(database).List(ctx, reportsFlags.limit)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		cmd.Println("No scans recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "Target", "Template", "Created")
	for _, s := range scans {
		_ = table.Append([]string{
			s.ID.String(), s.Target, s.ScanType,
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	_ = table.Render()
	return nil
}

func runReportsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind := args[0]

	format, err := export.ParseFormat(reportsFlags.format)
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	path := reportsFlags.output
	if path == "" {
		name := fmt.Sprintf("%s-%s.%s", kind, time.Now().Format("20060102-150405"), format)
		path = filepath.Join(cfg.Scanner.ReportsDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	switch kind {
	case "devices":
		devices, err := db.NewDeviceRepository(database).List(ctx)
		if err != nil {
			return err
		}
		err = export.Devices(file, format, devices)
		if err != nil {
			return err
		}
	case "vulns":
		findings, err := db.NewFindingRepository(database).List(ctx, "")
		if err != nil {
			return err
		}
		err = export.Findings(file, format, findings)
		if err != nil {
			return err
		}
	case "scans":
		scans, err := db.NewScanRepository(database).List(ctx, reportsFlags.limit)
		if err != nil {
			return err
		}
		err = export.Scans(file, format, scans)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export kind %q (want devices, vulns, or scans)", kind)
	}

	cmd.Printf("Exported %s to %s\n", kind, path)
	return nil
}
