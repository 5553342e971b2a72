// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a validated runtime configuration.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"analyzer/internal/config"
	"analyzer/pkg/build"
)

// Options is the parsed invocation: the effective configuration plus the
// requested one-off command, if any.
type Options struct {
	Config  *config.Config
	Command string // "" for the default analyze run, "list" for device listing
}

// ParseArgs builds the configuration from defaults, the config file and
// command line flags, in that precedence order.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetInfo()
	options := &Options{}

	var (
		configPath string
		deviceID   int
		sampleRate float64
		gain       float64
		record     bool
		outputFile string
		wsAddr     string
		udpAddr    string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time pitch and volume analyzer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override file values only when explicitly set.
			if cmd.Flags().Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if cmd.Flags().Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if cmd.Flags().Changed("gain") {
				cfg.Audio.Gain = gain
			}
			if cmd.Flags().Changed("record") {
				cfg.Recording.Enabled = record
			}
			if cmd.Flags().Changed("output") {
				cfg.Recording.OutputFile = outputFile
			}
			if cmd.Flags().Changed("ws-addr") {
				cfg.Transport.WebSocketAddr = wsAddr
				cfg.Transport.WebSocketEnabled = true
			}
			if cmd.Flags().Changed("udp-addr") {
				cfg.Transport.UDPTargetAddress = udpAddr
				cfg.Transport.UDPEnabled = true
			}
			if verbose {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}

			if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
				cfg.Recording.OutputFile = "recording-" +
					time.Now().UTC().Format("02-01-2006-150405") + ".wav"
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			options.Config = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().Float64VarP(&gain, "gain", "g", config.DefaultGain,
		"Input gain multiplier applied before analysis")
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the raw capture stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	rootCmd.PersistentFlags().StringVarP(&wsAddr, "ws-addr", "w", "",
		"Serve analysis results over WebSocket on this address, e.g. :8080")
	rootCmd.PersistentFlags().StringVarP(&udpAddr, "udp-addr", "u", "",
		"Send binary snapshot packets to this UDP address, e.g. 127.0.0.1:9090")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}
