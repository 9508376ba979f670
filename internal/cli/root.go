// Package cli implements sfsctl: local encryption tools, administrative
// tasks against the server's config, and a client for the HTTP API.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X ...".
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

// Streams are the process streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process stdin, stdout and stderr.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type remoteOptions struct {
	apiURL  string
	token   string
	timeout time.Duration
}

// NewRootCommand builds the sfsctl command tree.
func NewRootCommand(s Streams) *cobra.Command {
	remote := &remoteOptions{}

	root := &cobra.Command{
		Use:           "sfsctl",
		Short:         "Secure file storage command line tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if remote.apiURL == "" {
				remote.apiURL = os.Getenv("SFS_API_URL")
			}
			if remote.token == "" {
				remote.token = os.Getenv("SFS_TOKEN")
			}
		},
	}
	root.SetIn(s.In)
	root.SetOut(s.Out)
	root.SetErr(s.Err)

	root.PersistentFlags().StringVar(&remote.apiURL, "api-url", "", "API base URL (or set SFS_API_URL)")
	root.PersistentFlags().StringVar(&remote.token, "token", "", "session token (or set SFS_TOKEN)")
	root.PersistentFlags().DurationVar(&remote.timeout, "timeout", 5*time.Minute, "request timeout")

	root.AddCommand(
		encryptCmd(s),
		decryptCmd(s),
		keygenCmd(s),
		migrateCmd(s),
		sweepCmd(s),
		registerCmd(s, remote),
		loginCmd(s, remote),
		uploadCmd(s, remote),
		fetchCmd(s, remote),
		versionCmd(s),
	)
	return root
}

func versionCmd(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(s.Out, "Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
		},
	}
}
