// internal/cli/history.go
package cli

import (
	"fmt"

	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			flowErr := env.session.LoadHistory(cmd.Context())
			st := env.session.Snapshot()
			if env.json {
				if err := env.writeJSON(st.History); err != nil {
					return err
				}
				return flowErr
			}
			if flowErr != nil {
				env.printPanel(render.HistoryText(st.History, env.render), true)
				return flowErr
			}
			env.palette.heading.Fprintln(env.out, "Campaign history")
			fmt.Fprint(env.out, render.HistoryText(st.History, env.render))
			return nil
		},
	}
}
