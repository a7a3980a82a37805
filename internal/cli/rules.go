package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/raaihank/whatis/internal/rules"
	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect compiled rules",
	}

	cmd.AddCommand(newRulesListCmd(a), newRulesShowCmd(a))

	return cmd
}

func newRulesListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.log.Sync()

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			summaries := make([]rules.Summary, 0, reg.Len())
			for _, rule := range reg.Rules() {
				summaries = append(summaries, rules.Summarize(rule))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Name", "Validation", "Keywords", "Exceptions", "Distance", "Tags"})
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			table.SetColumnSeparator("")
			table.SetHeaderLine(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			for _, s := range summaries {
				table.Append([]string{
					s.Name,
					dash(s.Validation),
					strconv.Itoa(len(s.Keywords)),
					strconv.Itoa(len(s.Exceptions)),
					strconv.FormatUint(s.KeywordMaxDistance, 10),
					dash(strings.Join(s.Tags, ",")),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rules as JSON")

	return cmd
}

func newRulesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one rule as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.log.Sync()

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			rule, ok := reg.Lookup(args[0])
			if !ok {
				return fmt.Errorf("rule %q not found", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rules.Summarize(rule))
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
