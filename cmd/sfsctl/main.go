package main

import (
	"fmt"
	"os"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.StdStreams()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
