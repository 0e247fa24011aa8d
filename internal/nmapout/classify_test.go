package nmapout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Line
	}{
		{
			name: "host header with bare IP",
			raw:  "Nmap scan report for 10.0.0.5",
			want: Line{Tag: TagHostHeader, IP: "10.0.0.5"},
		},
		{
			name: "host header with hostname and parenthesized IP",
			raw:  "Nmap scan report for gateway.lab (192.168.1.1)",
			want: Line{Tag: TagHostHeader, IP: "192.168.1.1"},
		},
		{
			name: "mac with vendor",
			raw:  "MAC Address: AA:BB:CC:DD:EE:FF (Acme Corp)",
			want: Line{Tag: TagMAC, MAC: "AA:BB:CC:DD:EE:FF", Vendor: "Acme Corp"},
		},
		{
			name: "mac without vendor",
			raw:  "MAC Address: 00:11:22:33:44:55",
			want: Line{Tag: TagMAC, MAC: "00:11:22:33:44:55"},
		},
		{
			name: "os running hint",
			raw:  "Running: Linux 5.X",
			want: Line{Tag: TagOS, OS: "Linux 5.X"},
		},
		{
			name: "os details hint",
			raw:  "OS details: Microsoft Windows 10 1909",
			want: Line{Tag: TagOS, OS: "Microsoft Windows 10 1909"},
		},
		{
			name: "ports section header",
			raw:  "PORT      STATE SERVICE",
			want: Line{Tag: TagPortsHeader},
		},
		{
			name: "ports section header with version column",
			raw:  "PORT    STATE SERVICE VERSION",
			want: Line{Tag: TagPortsHeader},
		},
		{
			name: "host script section header",
			raw:  "Host script results:",
			want: Line{Tag: TagScriptHeader},
		},
		{
			name: "discovered port chatter is noise",
			raw:  "Discovered open port 443/tcp on 10.0.0.5",
			want: Line{Tag: TagNoise},
		},
		{
			name: "phase start chatter is noise",
			raw:  "Initiating SYN Stealth Scan at 14:02",
			want: Line{Tag: TagNoise},
		},
		{
			name: "phase end chatter is noise",
			raw:  "Completed SYN Stealth Scan at 14:03, 2.05s elapsed",
			want: Line{Tag: TagNoise},
		},
		{
			name: "stats chatter is noise",
			raw:  "Stats: 0:00:05 elapsed; 0 hosts completed",
			want: Line{Tag: TagNoise},
		},
		{
			name: "blank line",
			raw:  "",
			want: Line{Tag: TagBlank},
		},
		{
			name: "whitespace-only line is blank",
			raw:  "   \t",
			want: Line{Tag: TagBlank},
		},
		{
			name: "port row is other",
			raw:  "80/tcp    open  http",
			want: Line{Tag: TagOther},
		},
		{
			name: "script line is other",
			raw:  "|_http-vuln-cve2021-41773: VULNERABLE",
			want: Line{Tag: TagOther},
		},
		{
			name: "arbitrary prose is other",
			raw:  "Not shown: 998 closed ports",
			want: Line{Tag: TagOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw)
			assert.Equal(t, tt.want.Tag, got.Tag, "tag")
			assert.Equal(t, tt.want.IP, got.IP, "ip")
			assert.Equal(t, tt.want.MAC, got.MAC, "mac")
			assert.Equal(t, tt.want.Vendor, got.Vendor, "vendor")
			assert.Equal(t, tt.want.OS, got.OS, "os")
			assert.Equal(t, tt.raw, got.Raw, "raw preserved")
		})
	}
}

func TestClassifyPriority(t *testing.T) {
	t.Run("host header beats noise prefixes", func(t *testing.T) {
		got := Classify("Nmap scan report for 10.0.0.9")
		assert.Equal(t, TagHostHeader, got.Tag)
	})

	t.Run("mac beats os hint on combined text", func(t *testing.T) {
		got := Classify("MAC Address: AA:BB:CC:DD:EE:FF (Running Systems Inc)")
		assert.Equal(t, TagMAC, got.Tag)
		assert.Equal(t, "Running Systems Inc", got.Vendor)
	})
}
