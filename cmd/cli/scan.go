package cli

import (
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/logging"
	"github.com/cyberrange/rangescan/internal/metrics"
	"github.com/cyberrange/rangescan/internal/scanning"
	"github.com/cyberrange/rangescan/internal/templates"
)

var scanFlags struct {
	template         string
	exclude          string
	osDetection      bool
	versionIntensity int
	xmlOutput        string
	greppableOutput  string
	metricsAddr      string
}

var scanCmd = &cobra.Command{
	Use:   "scan <targets>",
	Short: "Run an nmap scan and ingest the results",
	Long: `Run an nmap scan against the given targets (hosts, CIDRs, or ranges),
stream the output through the parser, and store discovered devices and
findings. Interrupting the scan keeps everything parsed so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFlags.template, "template", "t", "",
		"scan template (defaults to scanner.default_template)")
	scanCmd.Flags().StringVar(&scanFlags.exclude, "exclude", "",
		"hosts to exclude, nmap --exclude syntax")
	scanCmd.Flags().BoolVar(&scanFlags.osDetection, "os-detection", false,
		"enable OS fingerprinting (requires privileges)")
	scanCmd.Flags().IntVar(&scanFlags.versionIntensity, "version-intensity", 0,
		"service version probe intensity, 1-9")
	scanCmd.Flags().StringVar(&scanFlags.xmlOutput, "xml", "",
		"also write nmap XML output to this file")
	scanCmd.Flags().StringVar(&scanFlags.greppableOutput, "greppable", "",
		"also write nmap greppable output to this file")
	scanCmd.Flags().StringVar(&scanFlags.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address while scanning")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	store := templates.NewStore(cfg.Scanner.TemplatesFile)
	set, err := store.Load()
	if err != nil {
		return err
	}

	template := scanFlags.template
	if template == "" {
		template = cfg.Scanner.DefaultTemplate
	}

	m := metrics.Default()
	if scanFlags.metricsAddr != "" {
		go serveMetrics(scanFlags.metricsAddr, m)
	}

	gateway := scanning.NewGateway(
		db.NewDeviceRepository(database),
		db.NewFindingRepository(database),
	)
	controller := scanning.NewController(
		cfg.Scanner.Binary, gateway, db.NewScanRepository(database), set, m)

	req := &scanning.Request{
		Target:           args[0],
		Template:         template,
		Exclude:          scanFlags.exclude,
		OSDetection:      scanFlags.osDetection,
		VersionIntensity: scanFlags.versionIntensity,
		XMLOutput:        scanFlags.xmlOutput,
		GreppableOutput:  scanFlags.greppableOutput,
	}
	if req.XMLOutput != "" {
		req.XMLOutput = filepath.Clean(req.XMLOutput)
	}
	if req.GreppableOutput != "" {
		req.GreppableOutput = filepath.Clean(req.GreppableOutput)
	}

	result, err := controller.Run(ctx, req)
	if err != nil {
		if result != nil {
			// Canceled but drained; report what made it in.
			printScanResult(cmd, result)
		}
		return err
	}

	printScanResult(cmd, result)
	return nil
}

func printScanResult(cmd *cobra.Command, result *scanning.Result) {
	cmd.Printf("Scan %s finished in %s\n", result.ScanID, result.Duration.Round(time.Second))
	cmd.Printf("  target:   %s (%s)\n", result.Target, result.ScanType)
	cmd.Printf("  hosts up: %d\n", result.HostsUp)
	cmd.Printf("  devices:  %d flushed, findings: %d, lines: %d\n",
		result.ParseStats.Devices, result.ParseStats.Findings, result.ParseStats.LinesFed)
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Error("Metrics server failed", "addr", addr, "error", err)
	}
}
