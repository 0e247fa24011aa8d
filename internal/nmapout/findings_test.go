package nmapout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortRow(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   PortEntry
		wantOK bool
	}{
		{
			name:   "open http",
			raw:    "80/tcp    open  http",
			want:   PortEntry{Port: 80, Proto: "tcp", State: "open", Service: "http"},
			wantOK: true,
		},
		{
			name:   "open with version column",
			raw:    "22/tcp open  ssh     OpenSSH 8.9p1",
			want:   PortEntry{Port: 22, Proto: "tcp", State: "open", Service: "ssh"},
			wantOK: true,
		},
		{
			name:   "filtered port",
			raw:    "135/tcp   filtered  msrpc",
			want:   PortEntry{Port: 135, Proto: "tcp", State: "filtered", Service: "msrpc"},
			wantOK: true,
		},
		{
			name:   "closed port",
			raw:    "23/tcp    closed  telnet",
			want:   PortEntry{Port: 23, Proto: "tcp", State: "closed", Service: "telnet"},
			wantOK: true,
		},
		{
			name:   "udp row",
			raw:    "161/udp   open  snmp",
			want:   PortEntry{Port: 161, Proto: "udp", State: "open", Service: "snmp"},
			wantOK: true,
		},
		{name: "too few fields", raw: "80/tcp open"},
		{name: "unknown state", raw: "80/tcp weird http"},
		{name: "no port field", raw: "Not shown: 998 closed ports"},
		{name: "diagnostic sub-line", raw: "Service detection performed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePortRow(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractScriptFinding(t *testing.T) {
	t.Run("vulnerable final remark derives service from family", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("|_http-vuln-cve2021-41773: VULNERABLE")
		require.True(t, ok)
		assert.Equal(t, 0, finding.Port)
		assert.Equal(t, "http", finding.Service)
		assert.Contains(t, finding.Evidence, "VULNERABLE")
	})

	t.Run("evidence keeps the raw script line with its prefix", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("  |_http-vuln-cve2021-41773: VULNERABLE")
		require.True(t, ok)
		assert.Equal(t, "|_http-vuln-cve2021-41773: VULNERABLE", finding.Evidence)
	})

	t.Run("smb family implies smb service", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("| smb-vuln-ms17-010: VULNERABLE to EternalBlue")
		require.True(t, ok)
		assert.Equal(t, "smb", finding.Service)
	})

	t.Run("explicit port and service token wins", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("|_445/tcp  microsoft-ds is vulnerable")
		require.True(t, ok)
		assert.Equal(t, 445, finding.Port)
		assert.Equal(t, "microsoft-ds", finding.Service)
	})

	t.Run("port without service falls back to family or sentinel", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("|_vulnerability found on 8080/tcp")
		require.True(t, ok)
		assert.Equal(t, 8080, finding.Port)
		assert.Equal(t, HostLevelService, finding.Service)
	})

	t.Run("no family and no port gets host-level sentinel", func(t *testing.T) {
		finding, ok := ExtractScriptFinding("|_target appears vulnerable")
		require.True(t, ok)
		assert.Equal(t, 0, finding.Port)
		assert.Equal(t, HostLevelService, finding.Service)
	})

	t.Run("negotiation failure suppresses classification", func(t *testing.T) {
		_, ok := ExtractScriptFinding("|_ssl-check: could not negotiate, possibly vulnerable")
		assert.False(t, ok)
	})

	t.Run("false marker suppresses classification", func(t *testing.T) {
		_, ok := ExtractScriptFinding("| smb-vuln-ms17-010: VULNERABLE: false")
		assert.False(t, ok)
	})

	t.Run("error marker suppresses classification", func(t *testing.T) {
		_, ok := ExtractScriptFinding("|_http-vuln-check: ERROR: script execution failed (vulnerable state unknown)")
		assert.False(t, ok)
	})

	t.Run("line without vulnerability term yields nothing", func(t *testing.T) {
		_, ok := ExtractScriptFinding("|_clock-skew: mean: 0s")
		assert.False(t, ok)
	})

	t.Run("line without script prefix yields nothing", func(t *testing.T) {
		_, ok := ExtractScriptFinding("everything here is vulnerable")
		assert.False(t, ok)
	})
}
