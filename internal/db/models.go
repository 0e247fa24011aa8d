package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Severity levels assigned to vulnerability findings.
const (
	SeverityInformational = "Informational"
	SeverityHigh          = "High"
)

// DeviceStatusUp marks a device seen alive by the most recent scan.
const DeviceStatusUp = "up"

// ServiceHostLevel is the sentinel service for findings not tied to a port.
const ServiceHostLevel = "host_level_service"

// IPAddr wraps net.IP to implement PostgreSQL INET type.
type IPAddr struct {
	net.IP
}

// Scan implements sql.Scanner for PostgreSQL INET type.
func (ip *IPAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		parsed := net.ParseIP(v)
		if parsed == nil {
			return fmt.Errorf("failed to parse IP address: %s", v)
		}
		ip.IP = parsed
		return nil
	case []byte:
		parsed := net.ParseIP(string(v))
		if parsed == nil {
			return fmt.Errorf("failed to parse IP address: %s", string(v))
		}
		ip.IP = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into IPAddr", value)
	}
}

// Value implements driver.Valuer for PostgreSQL INET type.
func (ip IPAddr) Value() (driver.Value, error) {
	if ip.IP == nil {
		return nil, nil
	}
	return ip.IP.String(), nil
}

// String returns the IP address string.
func (ip IPAddr) String() string {
	if ip.IP == nil {
		return ""
	}
	return ip.IP.String()
}

// ParseIPAddr parses s into an IPAddr.
func ParseIPAddr(s string) (IPAddr, error) {
	parsed := net.ParseIP(s)
	if parsed == nil {
		return IPAddr{}, fmt.Errorf("failed to parse IP address: %s", s)
	}
	return IPAddr{IP: parsed}, nil
}

// MACAddr wraps net.HardwareAddr to implement PostgreSQL MACADDR type.
type MACAddr struct {
	net.HardwareAddr
}

// Scan implements sql.Scanner for PostgreSQL MACADDR type.
func (mac *MACAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		hw, err := net.ParseMAC(v)
		if err != nil {
			return fmt.Errorf("failed to parse MAC address: %w", err)
		}
		mac.HardwareAddr = hw
		return nil
	case []byte:
		hw, err := net.ParseMAC(string(v))
		if err != nil {
			return fmt.Errorf("failed to parse MAC address: %w", err)
		}
		mac.HardwareAddr = hw
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MACAddr", value)
	}
}

// Value implements driver.Valuer for PostgreSQL MACADDR type.
func (mac MACAddr) Value() (driver.Value, error) {
	if mac.HardwareAddr == nil {
		return nil, nil
	}
	return mac.HardwareAddr.String(), nil
}

// String returns the MAC address string.
func (mac MACAddr) String() string {
	if mac.HardwareAddr == nil {
		return ""
	}
	return mac.HardwareAddr.String()
}

// MarshalJSON renders the MAC in colon-separated text form rather than
// the raw byte encoding.
func (mac MACAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(mac.String())
}

// ScanRecord is one completed scan invocation with its full captured output.
// Rows are append-only; nothing updates or deletes them.
type ScanRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Target     string    `db:"target" json:"target"`
	ScanType   string    `db:"scan_type" json:"scan_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	RawResults string    `db:"raw_results" json:"raw_results"`
}

// Device is a uniquely-identified network endpoint. At most one row exists
// per IP address; re-sightings update the row in place.
type Device struct {
	ID       uuid.UUID `db:"id" json:"id"`
	IP       IPAddr    `db:"ip" json:"ip"`
	MAC      *MACAddr  `db:"mac" json:"mac,omitempty"`
	Vendor   *string   `db:"vendor" json:"vendor,omitempty"`
	OS       *string   `db:"os" json:"os,omitempty"`
	Status   string    `db:"status" json:"status"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// Finding is a port/service observation or script-derived evidence item.
// The natural key is (device_ip, port, service); port 0 with the
// host-level sentinel service marks findings not tied to a port.
type Finding struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DeviceIP   IPAddr    `db:"device_ip" json:"device_ip"`
	Port       int       `db:"port" json:"port"`
	Service    string    `db:"service" json:"service"`
	Evidence   string    `db:"evidence" json:"evidence"`
	Severity   string    `db:"severity" json:"severity"`
	DetectedAt time.Time `db:"detected_at" json:"detected_at"`
}

// Stats aggregates store-wide counts for summary display.
type Stats struct {
	TotalScans    int `db:"total_scans" json:"total_scans"`
	TotalDevices  int `db:"total_devices" json:"total_devices"`
	LiveDevices   int `db:"live_devices" json:"live_devices"`
	TotalFindings int `db:"total_findings" json:"total_findings"`
	HighFindings  int `db:"high_findings" json:"high_findings"`
}
