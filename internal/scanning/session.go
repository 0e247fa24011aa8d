package scanning

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/errors"
	"github.com/cyberrange/rangescan/internal/logging"
	"github.com/cyberrange/rangescan/internal/metrics"
	"github.com/cyberrange/rangescan/internal/nmapout"
	"github.com/cyberrange/rangescan/internal/templates"
)

// Output lines can be long when scripts dump full banners.
const maxLineSize = 1024 * 1024

var summaryPattern = regexp.MustCompile(`Nmap done:.*\((\d+) hosts? up\)`)

// Controller owns scan session execution. At most one session runs at a
// time; the parser pipeline has no mutual exclusion for overlapping
// streams against the same store, so concurrent requests are rejected.
type Controller struct {
	binary    string
	gateway   nmapout.Gateway
	scans     *db.ScanRepository
	templates templates.Set
	metrics   *metrics.Metrics
	log       *logging.Logger
	validate  *validator.Validate

	active atomic.Bool
}

// NewController creates a scan session controller.
func NewController(binary string, gateway nmapout.Gateway, scans *db.ScanRepository,
	set templates.Set, m *metrics.Metrics) *Controller {
	return &Controller{
		binary:    binary,
		gateway:   gateway,
		scans:     scans,
		templates: set,
		metrics:   m,
		log:       logging.Default().WithComponent("scanning"),
		validate:  validator.New(),
	}
}

// buildArgs assembles the nmap command line for a request. Verbose output
// and periodic stats lines are always on; the parser depends on both.
func (c *Controller) buildArgs(req *Request, flags []string) []string {
	args := []string{"-v", "--stats-every", "1s"}
	args = append(args, flags...)

	if req.Exclude != "" {
		args = append(args, "--exclude", req.Exclude)
	}
	if req.OSDetection {
		args = append(args, "-O")
	}
	if req.VersionIntensity > 0 {
		args = append(args, "--version-intensity", strconv.Itoa(req.VersionIntensity))
	}
	if req.XMLOutput != "" {
		args = append(args, "-oX", req.XMLOutput)
	}
	if req.GreppableOutput != "" {
		args = append(args, "-oG", req.GreppableOutput)
	}

	args = append(args, strings.Fields(req.Target)...)
	return args
}

// Run executes one scan session to completion: launch nmap, stream its
// merged stdout and stderr through the parser, then record the scan.
// Cancellation kills the scanner but the already-buffered output is still
// drained and flushed before Run returns.
func (c *Controller) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, errors.WrapScanError(errors.CodeValidation, "Invalid scan request", err)
	}

	flags, err := c.templates.Flags(req.Template)
	if err != nil {
		return nil, err
	}

	if !c.active.CompareAndSwap(false, true) {
		return nil, errors.ErrSessionBusy()
	}
	defer c.active.Store(false)

	binaryPath, err := exec.LookPath(c.binary)
	if err != nil {
		return nil, errors.ErrScannerMissing(c.binary)
	}

	start := time.Now()
	c.log.InfoScan("Starting scan", req.Target, "template", req.Template)

	args := c.buildArgs(req, flags)
	cmd := exec.CommandContext(ctx, binaryPath, args...)

	// Merge stdout and stderr into one ordered stream; nmap interleaves
	// progress chatter and report text across both.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeScanFailed, "Failed to create output pipe", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, errors.WrapScanError(errors.CodeScanFailed, "Failed to start scanner", err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	parser := nmapout.NewParser(c.gateway,
		nmapout.WithLogger(c.log),
		nmapout.WithProgress(func(percent int) {
			if c.metrics != nil {
				c.metrics.ScanProgress.Set(float64(percent))
			}
			c.log.Debug("Scan progress", "target", req.Target, "percent", percent)
		}),
	)

	// Drain with a non-cancelable context: on cancellation CommandContext
	// kills the process and the pipe reaches EOF, but buffered output
	// must still be parsed and the final host flushed.
	rawOutput, consumeErr := consume(context.WithoutCancel(ctx), pr, parser)
	_ = pr.Close()
	waitErr := cmd.Wait()

	duration := time.Since(start)
	status := "completed"
	if ctx.Err() != nil {
		status = "canceled"
	} else if waitErr != nil || consumeErr != nil {
		status = "failed"
	}

	c.recordSessionMetrics(req.Template, status, duration, parser.Stats())

	if consumeErr != nil {
		return nil, errors.WrapScanError(errors.CodeScanFailed, "Failed to read scanner output", consumeErr)
	}
	if waitErr != nil && ctx.Err() == nil {
		c.log.ErrorScan("Scanner exited abnormally", req.Target, waitErr)
		return nil, errors.WrapScanError(errors.CodeScanFailed, "Scanner exited abnormally", waitErr)
	}

	record := &db.ScanRecord{
		Target:     req.Target,
		ScanType:   req.Template,
		RawResults: rawOutput,
	}
	if err := c.scans.Record(context.WithoutCancel(ctx), record); err != nil {
		return nil, err
	}

	result := &Result{
		ScanID:     record.ID,
		Target:     req.Target,
		ScanType:   req.Template,
		HostsUp:    parseHostsUp(rawOutput),
		Duration:   duration,
		ParseStats: parser.Stats(),
	}
	c.log.InfoScan("Scan finished", req.Target,
		"scan_id", record.ID, "status", status,
		"hosts_up", result.HostsUp, "duration", duration)

	if ctx.Err() != nil {
		return result, errors.WrapScanError(errors.CodeCanceled, "Scan canceled", ctx.Err())
	}
	return result, nil
}

// recordSessionMetrics publishes the outcome of one session, including
// the per-severity finding counts the parser observed.
func (c *Controller) recordSessionMetrics(template, status string, duration time.Duration, stats nmapout.Stats) {
	if c.metrics == nil {
		return
	}
	c.metrics.ScansTotal.WithLabelValues(template, status).Inc()
	c.metrics.ScanDuration.WithLabelValues(template).Observe(duration.Seconds())
	c.metrics.LinesParsed.Add(float64(stats.LinesFed))
	c.metrics.FindingsTotal.WithLabelValues(db.SeverityInformational).Add(float64(stats.Informational))
	c.metrics.FindingsTotal.WithLabelValues(db.SeverityHigh).Add(float64(stats.High))
}

// consume feeds every line of r through the parser in arrival order and
// returns the full captured output. The end-of-stream flush runs even
// when the reader fails part way; whatever parsed still persists.
func consume(ctx context.Context, r io.Reader, parser *nmapout.Parser) (string, error) {
	var raw strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line)
		raw.WriteByte('\n')
		if err := parser.Feed(ctx, line); err != nil {
			return raw.String(), err
		}
	}
	scanErr := scanner.Err()

	if err := parser.Finish(ctx); err != nil {
		return raw.String(), err
	}
	return raw.String(), scanErr
}

// parseHostsUp extracts the host-up count from the scan summary line.
// A missing or unparsable summary counts as zero hosts.
func parseHostsUp(output string) int {
	m := summaryPattern.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return count
}
