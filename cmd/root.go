package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set during build.
var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:   "waymon-portal",
	Short: "RemoteDesktop portal control plane for Wayland compositors",
	Long: `waymon-portal brokers remote-control sessions between screen-sharing
clients and a Wayland compositor: it negotiates device authorization over
the freedesktop RemoteDesktop portal contract, obtains user consent, and
picks a screen-capture strategy from the environment it finds itself in.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.AddCommand(serveCmd)
}
