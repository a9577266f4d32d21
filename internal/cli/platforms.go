// internal/cli/platforms.go
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPlatformsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platforms drafts can be adapted for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			all := env.session.Platforms().All()
			if env.json {
				return env.writeJSON(all)
			}

			tw := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tPLATFORM\tPRODUCES")
			for _, p := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.Label, p.Capability)
			}
			return tw.Flush()
		},
	}
}
