// Package export writes devices, findings, and scan history to CSV or
// JSON for downstream reporting.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cyberrange/rangescan/internal/db"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
	}
}

const timeLayout = "2006-01-02 15:04:05"

// Devices writes the device inventory in the requested format.
func Devices(w io.Writer, format Format, devices []*db.Device) error {
	if format == FormatJSON {
		return writeJSON(w, devices)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ip", "mac", "vendor", "os", "status", "last_seen"}); err != nil {
		return err
	}
	for _, d := range devices {
		row := []string{
			d.IP.String(),
			optionalMAC(d.MAC),
			optionalString(d.Vendor),
			optionalString(d.OS),
			d.Status,
			d.LastSeen.Format(timeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Findings writes vulnerability findings in the requested format.
func Findings(w io.Writer, format Format, findings []*db.Finding) error {
	if format == FormatJSON {
		return writeJSON(w, findings)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"device_ip", "port", "service", "severity", "evidence", "detected_at"}); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{
			f.DeviceIP.String(),
			strconv.Itoa(f.Port),
			f.Service,
			f.Severity,
			f.Evidence,
			f.DetectedAt.Format(timeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Scans writes scan history in the requested format. Raw output is
// included only in JSON; CSV rows would be unreadable with it inline.
func Scans(w io.Writer, format Format, scans []*db.ScanRecord) error {
	if format == FormatJSON {
		return writeJSON(w, scans)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "target", "scan_type", "created_at"}); err != nil {
		return err
	}
	for _, s := range scans {
		row := []string{
			s.ID.String(),
			s.Target,
			s.ScanType,
			s.CreatedAt.Format(timeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalMAC(mac *db.MACAddr) string {
	if mac == nil {
		return ""
	}
	return mac.String()
}
