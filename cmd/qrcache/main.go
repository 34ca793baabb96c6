// Package main provides the qrcache CLI tool for rendering, exporting and
// serving QR codes for links.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
