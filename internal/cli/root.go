// internal/cli/root.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Corphon/CampaignDesk/internal/app"
	"github.com/Corphon/CampaignDesk/internal/config"
	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

type rootOptions struct {
	backend string
	timeout time.Duration
	output  string
	noColor bool
	verbose bool
}

// NewRootCmd returns the root command for campaignctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "campaignctl",
		Short:         "CampaignDesk terminal client",
		Long:          "campaignctl runs the campaign flows (ideas, draft, platform variants, history) against the content backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case OutputText, OutputJSON:
				return nil
			}
			return fmt.Errorf("unknown output format %q (want text or json)", opts.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "backend base URL (default: BACKEND_URL or http://localhost:5000)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default: BACKEND_TIMEOUT or 60s)")
	rootCmd.PersistentFlags().StringVar(&opts.output, "output", OutputText, "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newIdeasCmd(opts))
	rootCmd.AddCommand(newDraftCmd(opts))
	rootCmd.AddCommand(newSpecializeCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newPlatformsCmd(opts))

	return rootCmd
}

// runEnv is what a single command invocation works with: one session
// against the configured backend plus output settings.
type runEnv struct {
	cfg     *config.Config
	session *workflow.Session
	render  render.Options
	out     io.Writer
	errOut  io.Writer
	json    bool
	palette palette
}

func (o *rootOptions) setup(cmd *cobra.Command) (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.BackendURL = strings.TrimRight(o.backend, "/")
	}
	if o.timeout > 0 {
		cfg.BackendTimeout = o.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// diagnostics go to stderr, the rendered panels to stdout
	base := logrus.New()
	base.SetOutput(cmd.ErrOrStderr())
	base.SetLevel(logrus.WarnLevel)
	if o.verbose {
		base.SetLevel(logrus.DebugLevel)
	}
	logger := utils.NewLogger(base)

	services, err := app.BuildServices(cfg, logger)
	if err != nil {
		return nil, err
	}
	factory, err := app.SessionFactory(services)
	if err != nil {
		return nil, err
	}
	renderOpts, err := app.RenderOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("campaignctl session ready", utils.Fields{
		"backend": cfg.BackendURL,
		"timeout": cfg.BackendTimeout.String(),
	})

	return &runEnv{
		cfg:     cfg,
		session: factory("cli-" + uuid.NewString()),
		render:  renderOpts,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		json:    o.output == OutputJSON,
		palette: newPalette(o.noColor),
	}, nil
}

func (e *runEnv) writeJSON(v interface{}) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// palette styles headings and failures. Colors are also dropped
// automatically when stdout is not a terminal.
type palette struct {
	heading *color.Color
	failure *color.Color
	dim     *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		heading: color.New(color.FgCyan, color.Bold),
		failure: color.New(color.FgRed),
		dim:     color.New(color.Faint),
	}
	if noColor {
		p.heading.DisableColor()
		p.failure.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

// printPanel writes rendered panel text, coloring the first line as a
// heading, or the whole text as a failure.
func (e *runEnv) printPanel(text string, failed bool) {
	if text == "" {
		return
	}
	if failed {
		e.palette.failure.Fprint(e.errOut, text)
		return
	}
	head, rest, found := strings.Cut(text, "\n")
	e.palette.heading.Fprintln(e.out, head)
	if found {
		fmt.Fprint(e.out, rest)
	}
}
