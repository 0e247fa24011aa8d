package nmapout

import (
	"regexp"
	"strconv"
	"strings"
)

// HostLevelService is recorded when script evidence names no port or
// recognizable service.
const HostLevelService = "host_level_service"

var (
	portFieldPattern   = regexp.MustCompile(`^(\d+)/(\w+)$`)
	portTCPPattern     = regexp.MustCompile(`(\d+)/tcp`)
	portServicePattern = regexp.MustCompile(`(\d+)/tcp\s+(\S+)`)
)

// Port states nmap reports in the port table.
var knownPortStates = map[string]bool{
	"open":     true,
	"closed":   true,
	"filtered": true,
}

// PortEntry is one parsed row of the port table.
type PortEntry struct {
	Port    int
	Proto   string
	State   string
	Service string
}

// ParsePortRow parses a port-table content line. Only rows whose state
// field is a known port state parse successfully; anything else is a
// diagnostic sub-line to be skipped.
func ParsePortRow(raw string) (PortEntry, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return PortEntry{}, false
	}

	m := portFieldPattern.FindStringSubmatch(fields[0])
	if m == nil || !knownPortStates[fields[1]] {
		return PortEntry{}, false
	}

	port, err := strconv.Atoi(m[1])
	if err != nil {
		return PortEntry{}, false
	}

	return PortEntry{
		Port:    port,
		Proto:   m[2],
		State:   fields[1],
		Service: fields[2],
	}, true
}

// ScriptFinding is a vulnerability evidence item derived from one
// script-output line.
type ScriptFinding struct {
	Port     int
	Service  string
	Evidence string
}

// Script-output line prefixes: final remark and continuation.
var scriptPrefixes = []string{"|_", "| "}

// Terms that mark a script line as vulnerability evidence.
var vulnerabilityTerms = []string{"vulnerable", "vulnerability"}

// Terms that suppress classification even when a vulnerability term is
// present. Scripts frequently report negative results using the same
// vocabulary as positive ones.
var negationTerms = []string{"false", "could not negotiate", "error"}

// Script-family name fragments that imply a service when the line carries
// no explicit port/service token.
var scriptFamilyServices = []struct {
	fragment string
	service  string
}{
	{"smb-vuln", "smb"},
	{"http-vuln", "http"},
}

// ExtractScriptFinding decides whether a script-section content line is
// evidence of a real vulnerability and, if so, which (port, service) it
// belongs to. Lines without a script prefix, without a vulnerability term,
// or with any negation term yield no finding.
func ExtractScriptFinding(raw string) (ScriptFinding, bool) {
	trimmed := strings.TrimSpace(raw)

	var body string
	matched := false
	for _, prefix := range scriptPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			body = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
			matched = true
			break
		}
	}
	if !matched {
		return ScriptFinding{}, false
	}

	lower := strings.ToLower(body)
	indicated := false
	for _, term := range vulnerabilityTerms {
		if strings.Contains(lower, term) {
			indicated = true
			break
		}
	}
	if !indicated {
		return ScriptFinding{}, false
	}
	for _, term := range negationTerms {
		if strings.Contains(lower, term) {
			return ScriptFinding{}, false
		}
	}

	// The full trimmed line, prefix included, is the evidence of record.
	finding := ScriptFinding{Service: HostLevelService, Evidence: trimmed}

	if m := portTCPPattern.FindStringSubmatch(body); m != nil {
		finding.Port, _ = strconv.Atoi(m[1])
	}
	if m := portServicePattern.FindStringSubmatch(body); m != nil {
		finding.Service = m[2]
		return finding, true
	}
	for _, family := range scriptFamilyServices {
		if strings.Contains(lower, family.fragment) {
			finding.Service = family.service
			return finding, true
		}
	}

	return finding, true
}
