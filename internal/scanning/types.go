// Package scanning runs nmap scan sessions: it launches the scanner,
// streams its merged output through the parser pipeline, and records the
// completed scan.
package scanning

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyberrange/rangescan/internal/nmapout"
)

// Request describes one scan session.
type Request struct {
	// Target is the nmap target expression: hosts, CIDRs, or ranges.
	Target string `json:"target" validate:"required,min=1,max=500"`
	// Template names the flag set to scan with.
	Template string `json:"template" validate:"required"`
	// Exclude lists hosts to skip, in nmap --exclude syntax.
	Exclude string `json:"exclude,omitempty" validate:"omitempty,max=500"`
	// OSDetection enables OS fingerprinting (-O, needs privileges).
	OSDetection bool `json:"os_detection,omitempty"`
	// VersionIntensity tunes service version probing, 0 leaves the
	// template's default.
	VersionIntensity int `json:"version_intensity,omitempty" validate:"min=0,max=9"`
	// XMLOutput writes nmap's XML report to this path.
	XMLOutput string `json:"xml_output,omitempty"`
	// GreppableOutput writes nmap's greppable report to this path.
	GreppableOutput string `json:"greppable_output,omitempty"`
}

// Result summarizes a completed scan session.
type Result struct {
	ScanID     uuid.UUID     `json:"scan_id"`
	Target     string        `json:"target"`
	ScanType   string        `json:"scan_type"`
	HostsUp    int           `json:"hosts_up"`
	Duration   time.Duration `json:"duration"`
	ParseStats nmapout.Stats `json:"parse_stats"`
}
