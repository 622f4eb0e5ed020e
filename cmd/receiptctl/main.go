package main

import (
	"fmt"
	"os"

	"github.com/bitfsorg/libreceipt-go/cmd/receiptctl/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "receiptctl:", err)
		os.Exit(1)
	}
}
