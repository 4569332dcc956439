package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/morezero/plex-mcp-server/internal/config"
	"github.com/morezero/plex-mcp-server/internal/server"
	"github.com/morezero/plex-mcp-server/pkg/commands"
	"github.com/morezero/plex-mcp-server/pkg/manifest"
)

// errIncompatible is returned by "commands check" when clients of the
// published manifest would break.
var errIncompatible = errors.New("catalog is not compatible with the published manifest")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "plex-mcp-server",
		Short:         "Permission-gated Plex Media Server tools over MCP",
		Long:          "plex-mcp-server exposes Plex Media Server operations as MCP tools. Every tool is gated by the PERMISSIONS tier (read, write or delete).\n\nEnvironment: PLEX_URL and PLEX_TOKEN (required), PERMISSIONS, TRANSPORT, HOST, PORT, COMMS_URL. A .env file in the working directory is loaded first.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	addServeFlags(root.Flags())
	root.RunE = runServe

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the server (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(serve.Flags())

	root.AddCommand(serve, newCommandsCmd(), newVersionCmd())
	return root
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("transport", "", "MCP transport: stdio or sse (env TRANSPORT)")
	fs.String("host", "", "HTTP bind host for sse (env HOST)")
	fs.Int("port", 0, "HTTP port for sse (env PORT)")
	fs.String("permissions", "", "Granted tier: read, write or delete (env PERMISSIONS)")
	fs.String("plex-url", "", "Plex Media Server base URL (env PLEX_URL)")
	fs.String("plex-token", "", "Plex authentication token (env PLEX_TOKEN)")
	fs.String("comms-url", "", "NATS URL for the request/reply surface (env COMMS_URL)")
	fs.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fs.Bool("debug", false, "Force debug logging (env DEBUG)")
}

// applyFlags copies explicitly set flags over the environment values.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	strs := map[string]*string{
		"transport":   &cfg.Transport,
		"host":        &cfg.Host,
		"permissions": &cfg.Permissions,
		"plex-url":    &cfg.PlexURL,
		"plex-token":  &cfg.PlexToken,
		"comms-url":   &cfg.COMMSURL,
		"log-level":   &cfg.LogLevel,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if fs.Changed("port") {
		port, err := fs.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = port
	}
	if fs.Changed("debug") {
		debug, err := fs.GetBool("debug")
		if err != nil {
			return err
		}
		cfg.Debug = debug
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	// stdout belongs to the stdio transport.
	printSettings(cmd.ErrOrStderr(), cfg)
	return server.Run(cmd.Context(), cfg)
}

func printSettings(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Plex URL:     %s\n", cfg.PlexURL)
	fmt.Fprintf(w, "Plex token:   %s\n", cfg.MaskedToken())
	fmt.Fprintf(w, "Permissions:  %s\n", cfg.Permissions)
	if cfg.Transport == config.TransportSSE {
		fmt.Fprintf(w, "Transport:    sse on %s\n", cfg.Addr())
	} else {
		fmt.Fprintf(w, "Transport:    %s\n", cfg.Transport)
	}
	if cfg.COMMSURL != "" {
		fmt.Fprintf(w, "COMMS:        %s (%s)\n", cfg.COMMSURL, cfg.COMMSSubject)
	}
}

func currentManifest() (*manifest.Manifest, error) {
	reg, err := commands.NewRegistry()
	if err != nil {
		return nil, err
	}
	return manifest.FromRegistry(reg, commands.Version), nil
}

func newCommandsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Print the command catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := currentManifest()
			if err != nil {
				return err
			}
			return writeManifest(cmd.OutOrStdout(), m, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: json, yaml or table")

	check := &cobra.Command{
		Use:   "check <manifest>",
		Short: "Check the catalog against a published manifest (JSON with comments allowed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			published, err := manifest.LoadFile(args[0])
			if err != nil {
				return err
			}
			current, err := currentManifest()
			if err != nil {
				return err
			}
			report, err := manifest.Check(published, current)
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), report)
			if !report.Compatible() {
				return errIncompatible
			}
			return nil
		},
	}
	cmd.AddCommand(check)
	return cmd
}

func writeManifest(w io.Writer, m *manifest.Manifest, format string) error {
	switch format {
	case "json":
		data, err := m.JSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "yaml":
		data, err := m.YAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COMMAND\tTIER\tPARAMS")
		for _, c := range m.Commands {
			params := make([]string, len(c.Params))
			for i, p := range c.Params {
				params[i] = p.Name
				if p.Optional {
					params[i] += "?"
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Tier, strings.Join(params, " "))
		}
		fmt.Fprintf(tw, "\n%d commands, catalog %s\n", len(m.Commands), m.Version)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (use json, yaml or table)", format)
	}
}

func writeReport(w io.Writer, r *manifest.Report) {
	fmt.Fprintf(w, "published %s, current %s\n", r.Published, r.Current)
	for _, name := range r.Added {
		fmt.Fprintf(w, "  added      %s\n", name)
	}
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  %-10s %s: %s\n", v.Kind, v.Command, v.Detail)
	}
	switch {
	case len(r.Violations) == 0:
		fmt.Fprintln(w, "compatible")
	case r.Compatible():
		fmt.Fprintln(w, "breaking changes accepted behind the major version bump")
	default:
		fmt.Fprintln(w, "incompatible")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the catalog version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", manifest.DefaultName, commands.Version)
		},
	}
}
