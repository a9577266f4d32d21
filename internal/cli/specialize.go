// internal/cli/specialize.go
package cli

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/spf13/cobra"
)

func newSpecializeCmd(opts *rootOptions) *cobra.Command {
	var (
		draftID     string
		draftText   string
		platforms   []string
		all         bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "specialize",
		Short: "Adapt a draft for one or more platforms",
		Example: "  campaignctl specialize --draft-id 42 --draft-text \"...\" --platform twitter --platform blog\n" +
			"  campaignctl specialize --draft-id 42 --draft-text \"...\" --all",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(platforms) > 0) {
				return errors.New("pass either --all or at least one --platform")
			}
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := env.session.SetupSpecialists(models.NewDraftID(draftID), draftText); err != nil {
				return err
			}
			if concurrency < 1 {
				concurrency = env.cfg.SpecializeConcurrency
			}

			// print each platform as soon as its box settles
			var printed sync.WaitGroup
			updates := env.session.Subscribe()
			if !env.json {
				printed.Add(1)
				go func() {
					defer printed.Done()
					env.streamResults(updates)
				}()
			}

			var results map[string]error
			if all {
				results = env.session.SpecializeAll(cmd.Context(), concurrency)
			} else {
				results = env.session.SpecializeEach(cmd.Context(), platforms, concurrency)
			}
			env.session.Unsubscribe(updates)
			printed.Wait()

			if env.json {
				if err := env.writeJSON(env.session.Snapshot().Specialist); err != nil {
					return err
				}
			}
			return summarize(results)
		},
	}

	cmd.Flags().StringVar(&draftID, "draft-id", "", "id of the draft to adapt")
	cmd.Flags().StringVar(&draftText, "draft-text", "", "text of the draft to adapt")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "platform to adapt for (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "adapt for every configured platform")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max requests in flight (default: SPECIALIZE_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("draft-id")
	_ = cmd.MarkFlagRequired("draft-text")

	return cmd
}

// streamResults prints result boxes as they reach a final status, until updates is closed.
func (e *runEnv) streamResults(updates <-chan workflow.PanelUpdate) {
	for u := range updates {
		if u.Panel != workflow.PanelResult || u.Status.Loading() {
			continue
		}
		r, ok := e.session.Snapshot().Specialist.Results[u.Key]
		if !ok {
			continue
		}
		e.printPanel(render.ResultText(r), r.Status == workflow.StatusError)
	}
}

func summarize(results map[string]error) error {
	var failed []string
	for name, err := range results {
		if err != nil && !errors.Is(err, workflow.ErrStaleResponse) {
			failed = append(failed, name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Strings(failed)
	return fmt.Errorf("%d of %d platforms failed: %v", len(failed), len(results), failed)
}
