package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberrange/rangescan/internal/db"
)

func testDevice(t *testing.T) *db.Device {
	t.Helper()

	ip, err := db.ParseIPAddr("10.0.0.5")
	require.NoError(t, err)
	var mac db.MACAddr
	require.NoError(t, mac.Scan("aa:bb:cc:dd:ee:ff"))
	vendor := "Acme Corp"

	return &db.Device{
		ID:       uuid.New(),
		IP:       ip,
		MAC:      &mac,
		Vendor:   &vendor,
		Status:   db.DeviceStatusUp,
		LastSeen: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	t.Run("valid formats", func(t *testing.T) {
		for _, s := range []string{"csv", "json"} {
			format, err := ParseFormat(s)
			require.NoError(t, err)
			assert.Equal(t, Format(s), format)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := ParseFormat("xml")
		assert.Error(t, err)
	})
}

func TestDevicesCSV(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Devices(&buf, FormatCSV, []*db.Device{testDevice(t)}))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ip", "mac", "vendor", "os", "status", "last_seen"}, rows[0])
	assert.Equal(t, []string{"10.0.0.5", "aa:bb:cc:dd:ee:ff", "Acme Corp", "", "up", "2026-03-14 10:00:00"}, rows[1])
}

func TestDevicesJSON(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Devices(&buf, FormatJSON, []*db.Device{testDevice(t)}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "10.0.0.5", decoded[0]["ip"])
	assert.Equal(t, "up", decoded[0]["status"])
	assert.NotContains(t, decoded[0], "os", "nil fields omitted")
}

func TestFindingsCSV(t *testing.T) {
	ip, err := db.ParseIPAddr("10.0.0.5")
	require.NoError(t, err)

	finding := &db.Finding{
		ID:         uuid.New(),
		DeviceIP:   ip,
		Port:       445,
		Service:    "smb",
		Evidence:   "VULNERABLE",
		Severity:   db.SeverityHigh,
		DetectedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	var buf strings.Builder
	require.NoError(t, Findings(&buf, FormatCSV, []*db.Finding{finding}))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"10.0.0.5", "445", "smb", "High", "VULNERABLE", "2026-03-14 10:00:00"}, rows[1])
}

func TestScansCSVOmitsRawOutput(t *testing.T) {
	record := &db.ScanRecord{
		ID:         uuid.New(),
		Target:     "10.0.0.0/24",
		ScanType:   "Quick Scan",
		CreatedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		RawResults: "many kilobytes of text",
	}

	var buf strings.Builder
	require.NoError(t, Scans(&buf, FormatCSV, []*db.ScanRecord{record}))

	assert.NotContains(t, buf.String(), "many kilobytes")
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{record.ID.String(), "10.0.0.0/24", "Quick Scan", "2026-03-14 10:00:00"}, rows[1])
}

func TestEmptyExports(t *testing.T) {
	t.Run("csv keeps the header row", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, Devices(&buf, FormatCSV, nil))
		assert.Equal(t, "ip,mac,vendor,os,status,last_seen\n", buf.String())
	})

	t.Run("json yields null for nil slice", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, Findings(&buf, FormatJSON, nil))
		assert.Equal(t, "null", strings.TrimSpace(buf.String()))
	})
}
