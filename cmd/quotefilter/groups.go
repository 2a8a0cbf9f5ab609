package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type groupView struct {
	Group   string       `json:"group"`
	Options []optionView `json:"options"`
}

type optionView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// newGroupsCmd lists the filter groups the page exposes without starting
// the UI, which is handy when checking a page against the markup contract.
func newGroupsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the filter groups found on the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			c, err := rt.client()
			if err != nil {
				return err
			}
			_, widgets, skipped, err := rt.loadPage(cmd.Context(), c)
			if err != nil {
				return err
			}

			views := make([]groupView, 0, len(widgets))
			for _, w := range widgets {
				v := groupView{Group: w.Group(), Options: []optionView{}}
				for _, e := range w.Entries() {
					v.Options = append(v.Options, optionView{Label: e.Label, Value: e.Value})
				}
				views = append(views, v)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			for _, v := range views {
				fmt.Fprintf(out, "%s (%d options)\n", v.Group, len(v.Options))
				for _, o := range v.Options {
					fmt.Fprintf(out, "  %-8s %s\n", o.Value, o.Label)
				}
			}
			if len(skipped) > 0 {
				fmt.Fprintf(out, "\nskipped %d widget(s):\n", len(skipped))
				for _, e := range skipped {
					fmt.Fprintf(out, "  %s\n", strings.TrimPrefix(e.Error(), "page: "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print groups as JSON")
	return cmd
}
