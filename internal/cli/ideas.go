// internal/cli/ideas.go
package cli

import (
	"errors"
	"strings"

	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/spf13/cobra"
)

func newIdeasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ideas <topic>",
		Short:   "Generate campaign ideas for a topic",
		Example: "  campaignctl ideas \"summer sale\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			topic := strings.Join(args, " ")

			flowErr := env.session.GenerateIdeas(cmd.Context(), topic)
			if errors.Is(flowErr, workflow.ErrEmptyTopic) {
				return flowErr
			}

			st := env.session.Snapshot()
			if env.json {
				if err := env.writeJSON(st.Ideas); err != nil {
					return err
				}
				return flowErr
			}
			env.printPanel(render.IdeasText(st.Ideas), flowErr != nil)
			if flowErr == nil {
				env.palette.dim.Fprintln(env.out, "Next: campaignctl draft --topic <topic> --idea-id <id> --idea-text <text>")
			}
			return flowErr
		},
	}
}
