package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo is the JSON shape of the version command
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// newVersionCmd creates the 'version' subcommand
func newVersionCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("details")
			info := versionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
			if verbose || isJSON(cmd) {
				info.GoVersion = runtime.Version()
				info.Platform = runtime.GOOS + "/" + runtime.GOARCH
			}

			if isJSON(cmd) {
				return writeJSON(stdout, info)
			}
			_, _ = fmt.Fprintf(stdout, "laftelplus\n")
			_, _ = fmt.Fprintf(stdout, "  Version: %s\n", info.Version)
			_, _ = fmt.Fprintf(stdout, "  Commit:  %s\n", info.Commit)
			_, _ = fmt.Fprintf(stdout, "  Built:   %s\n", info.BuildDate)
			if verbose {
				_, _ = fmt.Fprintf(stdout, "  Go Version: %s\n", info.GoVersion)
				_, _ = fmt.Fprintf(stdout, "  Platform: %s\n", info.Platform)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolP("details", "v", false, "Show extended build information")
	return cmd
}
