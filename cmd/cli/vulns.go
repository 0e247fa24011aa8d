package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/errors"
)

var vulnsFlags struct {
	severity string
	ip       string
}

var vulnsCmd = &cobra.Command{
	Use:   "vulns",
	Short: "List vulnerability findings",
	RunE:  runVulns,
}

func init() {
	vulnsCmd.Flags().StringVar(&vulnsFlags.severity, "severity", "",
		"filter by severity (Informational or High)")
	vulnsCmd.Flags().StringVar(&vulnsFlags.ip, "ip", "",
		"filter by device IP")

	rootCmd.AddCommand(vulnsCmd)
}

func runVulns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if vulnsFlags.severity != "" &&
		vulnsFlags.severity != db.SeverityInformational &&
		vulnsFlags.severity != db.SeverityHigh {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"severity must be Informational or High", "severity", vulnsFlags.severity)
	}

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	repo := db.NewFindingRepository(database)

	var findings []*db.Finding
	if vulnsFlags.ip != "" {
		addr, err := db.ParseIPAddr(vulnsFlags.ip)
		if err != nil {
			return errors.ErrInvalidTarget(vulnsFlags.ip)
		}
		findings, err = repo.ListByDevice(ctx, addr)
		if err != nil {
			return err
		}
		if vulnsFlags.severity != "" {
			filtered := findings[:0]
			for _, f := range findings {
				if f.Severity == vulnsFlags.severity {
					filtered = append(filtered, f)
				}
			}
			findings = filtered
		}
	} else {
		findings, err = repo.List(ctx, vulnsFlags.severity)
		if err != nil {
			return err
		}
	}

	if len(findings) == 0 {
		cmd.Println("No findings match.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("IP", "Port", "Service", "Severity", "Evidence", "Detected")
	for _, f := range findings {
		_ = table.Append([]string{
			f.DeviceIP.String(),
			strconv.Itoa(f.Port),
			f.Service,
			f.Severity,
			f.Evidence,
			f.DetectedAt.Format("2006-01-02 15:04:05"),
		})
	}
	_ = table.Render()
	return nil
}
