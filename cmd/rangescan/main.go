// Command rangescan runs nmap scans against lab networks and maintains a
// device and vulnerability inventory in PostgreSQL.
package main

import (
	"fmt"
	"os"

	"github.com/cyberrange/rangescan/cmd/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
