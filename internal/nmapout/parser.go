package nmapout

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/cyberrange/rangescan/internal/logging"
)

// Section is the block of a host report currently being parsed.
type Section int

const (
	// SectionIdle means content lines carry no findings.
	SectionIdle Section = iota
	// SectionPorts means content lines are port-table rows.
	SectionPorts
	// SectionHostScript means content lines are script output.
	SectionHostScript
)

// Gateway receives extraction results as they are produced. Implementations
// must be idempotent per natural key; the parser calls them once per
// observation with no dedup of its own.
type Gateway interface {
	// UpsertDevice persists one host sighting. Empty MAC/Vendor/OS fields
	// must not erase previously learned non-empty values.
	UpsertDevice(ctx context.Context, snap DeviceSnapshot) error
	// UpsertInformationalFinding records an open port, insert-if-absent.
	UpsertInformationalFinding(ctx context.Context, ip string, port int, service string) error
	// UpsertEscalatedFinding records script evidence, forcing High
	// severity and overwriting earlier evidence for the same key.
	UpsertEscalatedFinding(ctx context.Context, ip string, port int, service, evidence string, at time.Time) error
}

var progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)% done`)

// Progress extracts a completion percentage from a progress chatter line.
// It is independent of the structural parse; lines without a parsable
// percentage report ok=false and nothing else.
func Progress(raw string) (int, bool) {
	m := progressPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int(value), true
}

// Parser drives one streaming parse pass. It is not safe for concurrent
// use; one parser serves exactly one scan session, fed lines strictly in
// arrival order.
type Parser struct {
	gateway    Gateway
	log        *logging.Logger
	now        func() time.Time
	onProgress func(percent int)

	section Section
	acc     hostAccumulator

	linesFed           int
	devicesFlushed     int
	informationalFound int
	escalatedFound     int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for recovered per-line failures.
func WithLogger(log *logging.Logger) Option {
	return func(p *Parser) { p.log = log }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithProgress registers a callback for progress percentages seen in the
// stream.
func WithProgress(fn func(percent int)) Option {
	return func(p *Parser) { p.onProgress = fn }
}

// NewParser creates a parser that reports results to gateway.
func NewParser(gateway Gateway, opts ...Option) *Parser {
	p := &Parser{
		gateway: gateway,
		log:     logging.Default().WithComponent("parser"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed processes one output line. Persistence failures are logged and
// swallowed so one bad row cannot lose the rest of the scan; only context
// cancellation propagates.
func (p *Parser) Feed(ctx context.Context, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.linesFed++

	if p.onProgress != nil {
		if percent, ok := Progress(raw); ok {
			p.onProgress(percent)
		}
	}

	line := Classify(raw)
	switch line.Tag {
	case TagHostHeader:
		if prev, held := p.acc.begin(line.IP); held {
			p.flushDevice(ctx, prev)
		}
		p.section = SectionIdle
	case TagMAC:
		p.acc.setMAC(line.MAC, line.Vendor)
	case TagOS:
		p.acc.setOS(line.OS)
	case TagPortsHeader:
		p.section = SectionPorts
	case TagScriptHeader:
		p.section = SectionHostScript
	case TagBlank:
		p.section = SectionIdle
	case TagNoise:
		// Discarded without touching section state.
	case TagOther:
		p.handleContent(ctx, raw)
	}

	return nil
}

// handleContent applies the active section's extraction rule to a content
// line. Non-matching lines are skipped without terminating the section.
func (p *Parser) handleContent(ctx context.Context, raw string) {
	ip, held := p.acc.ip()
	if !held {
		return
	}

	switch p.section {
	case SectionPorts:
		entry, ok := ParsePortRow(raw)
		if !ok || entry.State != "open" {
			return
		}
		p.informationalFound++
		if err := p.gateway.UpsertInformationalFinding(ctx, ip, entry.Port, entry.Service); err != nil {
			p.log.WarnParse("Failed to persist open-port finding",
				"ip", ip, "port", entry.Port, "error", err)
		}
	case SectionHostScript:
		finding, ok := ExtractScriptFinding(raw)
		if !ok {
			return
		}
		p.escalatedFound++
		err := p.gateway.UpsertEscalatedFinding(ctx, ip, finding.Port, finding.Service, finding.Evidence, p.now())
		if err != nil {
			p.log.WarnParse("Failed to persist script finding",
				"ip", ip, "port", finding.Port, "service", finding.Service, "error", err)
		}
	case SectionIdle:
		// Content outside any section carries no findings.
	}
}

// flushDevice persists one accumulated host snapshot.
func (p *Parser) flushDevice(ctx context.Context, snap DeviceSnapshot) {
	p.devicesFlushed++
	if err := p.gateway.UpsertDevice(ctx, snap); err != nil {
		p.log.WarnParse("Failed to persist device", "ip", snap.IP, "error", err)
	}
}

// Finish flushes the host still held by the accumulator. A stream ending
// right after a host header has no trailing blank line or next header to
// trigger a flush, so Finish must always be called at end of input.
func (p *Parser) Finish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap, held := p.acc.flush(); held {
		p.flushDevice(ctx, snap)
	}
	p.section = SectionIdle
	return nil
}

// Stats reports what one parse pass saw. Findings is the total across
// both severities.
type Stats struct {
	LinesFed      int
	Devices       int
	Findings      int
	Informational int
	High          int
}

// Stats returns counters for the lines fed so far.
func (p *Parser) Stats() Stats {
	return Stats{
		LinesFed:      p.linesFed,
		Devices:       p.devicesFlushed,
		Findings:      p.informationalFound + p.escalatedFound,
		Informational: p.informationalFound,
		High:          p.escalatedFound,
	}
}
