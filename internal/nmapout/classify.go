// Package nmapout parses the streaming text output of nmap into devices
// and vulnerability findings. Lines are classified one at a time, a small
// section state machine tracks which block of a host report is active,
// and extraction results are handed to a persistence gateway.
package nmapout

import (
	"regexp"
	"strings"
)

// Tag identifies the semantic class of a single output line.
type Tag int

const (
	// TagOther is any line no higher-priority pattern claims. Section
	// content (port rows, script lines) arrives with this tag.
	TagOther Tag = iota
	// TagHostHeader starts a new host report.
	TagHostHeader
	// TagMAC is a link-layer address line, optionally with a vendor.
	TagMAC
	// TagOS is an OS fingerprint hint line.
	TagOS
	// TagPortsHeader is the column header opening the port table.
	TagPortsHeader
	// TagScriptHeader opens the host-level script results block.
	TagScriptHeader
	// TagNoise is scan-progress chatter, discarded in every section.
	TagNoise
	// TagBlank terminates the active section.
	TagBlank
)

// String returns a human-readable tag name for logging.
func (t Tag) String() string {
	switch t {
	case TagHostHeader:
		return "host_header"
	case TagMAC:
		return "mac"
	case TagOS:
		return "os"
	case TagPortsHeader:
		return "ports_header"
	case TagScriptHeader:
		return "script_header"
	case TagNoise:
		return "noise"
	case TagBlank:
		return "blank"
	default:
		return "other"
	}
}

// Line is one classified output line with its captured fields. Only the
// fields relevant to the tag are populated.
type Line struct {
	Tag    Tag
	Raw    string
	IP     string
	MAC    string
	Vendor string
	OS     string
}

const (
	hostHeaderMarker  = "Nmap scan report for"
	scriptBlockMarker = "Host script results:"
)

var (
	macPattern = regexp.MustCompile(`MAC Address: ([0-9A-Fa-f:]{17})(?:\s+\((.*?)\))?`)
	osPattern  = regexp.MustCompile(`(?i)Running: (.*)$|OS details: (.*)$`)

	// Progress chatter and phase announcements that must never be
	// mistaken for section content.
	noisePrefixes = []string{
		"Discovered open port",
		"Initiating ",
		"Completed ",
		"Stats:",
	}
)

// Classify maps one raw output line to its semantic tag plus captured
// fields. It is stateless and never fails; anything unrecognized comes
// back as TagOther for the section state machine to interpret.
func Classify(raw string) Line {
	line := Line{Tag: TagOther, Raw: raw}

	if strings.Contains(raw, hostHeaderMarker) {
		fields := strings.Fields(raw)
		line.Tag = TagHostHeader
		line.IP = strings.Trim(fields[len(fields)-1], "()")
		return line
	}

	if m := macPattern.FindStringSubmatch(raw); m != nil {
		line.Tag = TagMAC
		line.MAC = m[1]
		line.Vendor = m[2]
		return line
	}

	if m := osPattern.FindStringSubmatch(raw); m != nil {
		line.Tag = TagOS
		if m[1] != "" {
			line.OS = strings.TrimSpace(m[1])
		} else {
			line.OS = strings.TrimSpace(m[2])
		}
		return line
	}

	if isPortsHeader(raw) {
		line.Tag = TagPortsHeader
		return line
	}

	if strings.HasPrefix(strings.TrimSpace(raw), scriptBlockMarker) {
		line.Tag = TagScriptHeader
		return line
	}

	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(raw, prefix) {
			line.Tag = TagNoise
			return line
		}
	}

	if strings.TrimSpace(raw) == "" {
		line.Tag = TagBlank
		return line
	}

	return line
}

// isPortsHeader matches the port table column header regardless of the
// exact spacing nmap chose for this run.
func isPortsHeader(raw string) bool {
	fields := strings.Fields(raw)
	return len(fields) >= 3 && fields[0] == "PORT" && fields[1] == "STATE" && fields[2] == "SERVICE"
}
