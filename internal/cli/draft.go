// internal/cli/draft.go
package cli

import (
	"fmt"
	"strconv"

	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/spf13/cobra"
)

func newDraftCmd(opts *rootOptions) *cobra.Command {
	var (
		topic    string
		ideaID   int
		ideaText string
	)

	cmd := &cobra.Command{
		Use:     "draft",
		Short:   "Write a draft for one idea",
		Example: "  campaignctl draft --topic \"summer sale\" --idea-id 2 --idea-text \"Beach bundle\"",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			flowErr := env.session.GenerateDraft(cmd.Context(), workflow.IdeaRef{
				ID:    strconv.Itoa(ideaID),
				Text:  ideaText,
				Topic: topic,
			})

			st := env.session.Snapshot()
			if env.json {
				if err := env.writeJSON(st.Draft); err != nil {
					return err
				}
				return flowErr
			}
			if st.Draft.Status == workflow.StatusIdle {
				// rejected before any request was made
				return flowErr
			}
			env.printPanel(render.DraftText(st.Draft), flowErr != nil)
			if flowErr != nil {
				return flowErr
			}

			env.palette.heading.Fprintln(env.out, "Platforms:")
			for _, p := range st.Specialist.Platforms {
				fmt.Fprintf(env.out, "  %-10s %s\n", p.Key, p.Capability)
			}
			env.palette.dim.Fprintf(env.out, "Next: campaignctl specialize --draft-id %s --draft-text <text> --all\n", st.Draft.DraftID.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "topic the idea was generated for")
	cmd.Flags().IntVar(&ideaID, "idea-id", 0, "id of the chosen idea")
	cmd.Flags().StringVar(&ideaText, "idea-text", "", "text of the chosen idea")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("idea-id")
	_ = cmd.MarkFlagRequired("idea-text")

	return cmd
}
