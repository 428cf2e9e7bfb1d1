package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneytracker/internal/core"
)

var errMisconfigured = errors.New("one or more record kinds are not configured")

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Report the configuration status of every record kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tCOLLECTION\tSTATUS")
			failed := false
			for _, kind := range core.Kinds() {
				status := "ok"
				if cerr := cfg.KindStatus(kind); cerr != nil {
					failed = true
					status = "missing " + strings.Join(cerr.Missing, ", ")
				}
				id := cfg.CollectionID(kind)
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, id, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed {
				return errMisconfigured
			}
			return nil
		},
	}
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the record kinds with their fields and Notion property names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			schemas, err := cfg.Schemas()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for i, kind := range core.Kinds() {
				s := schemas[kind]
				if i > 0 {
					fmt.Fprintln(tw)
				}
				fmt.Fprintf(tw, "%s (%s)\n", kind, s.Title)
				fmt.Fprintln(tw, "  FIELD\tPROPERTY\tTYPE\tREQUIRED")
				for _, f := range s.Fields {
					typ := string(f.Type)
					if f.SelectConstrained {
						typ += " [" + strings.Join(f.Options, "|") + "]"
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%t\n", f.Name, f.Property, typ, f.Required)
				}
			}
			return tw.Flush()
		},
	}
}
