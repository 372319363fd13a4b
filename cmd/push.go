package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/staticpush/internal/pipeline"
	"github.com/fulmenhq/staticpush/pkg/ascii"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/prompt"
	"github.com/fulmenhq/staticpush/pkg/store"
)

func newPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Diff, confirm and publish changed bundles",
		Long: `Push builds like 'staticpush build', then fetches the published manifest of every
bundle from the environment's store. New bundles are published, unchanged bundles
are skipped unless --force is set, and changed bundles show a diff and wait for
confirmation.`,
		Args: cobra.NoArgs,
		RunE: runPush,
	}
	addRunFlags(cmd)
	cmd.Flags().BoolP("force", "f", false, "Publish bundles whose manifest is unchanged")
	cmd.Flags().Bool("no-prompt", false, "Never ask; answer diff confirmations with --auto-confirm")
	cmd.Flags().String("auto-confirm", "no", "Answer to diff confirmations with --no-prompt (yes|no)")
	return cmd
}

func runPush(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := runOptions(cmd, cfg)
	if err != nil {
		return err
	}
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.DryRun, _ = cmd.Flags().GetBool("no-op")
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")
	autoConfirm, _ := cmd.Flags().GetString("auto-confirm")

	var confirmer prompt.Confirmer
	if noPrompt {
		switch autoConfirm {
		case "yes", "no":
			confirmer = prompt.Static(autoConfirm == "yes")
		default:
			return fmt.Errorf("%w: --auto-confirm must be yes or no, got %q", errConfig, autoConfirm)
		}
	} else {
		term := prompt.NewTerminal()
		term.Out = cmd.ErrOrStderr()
		ok, err := term.Confirm(ctx, confirmationMessage(opts.TagFilter, opts.Environment))
		if errors.Is(err, prompt.ErrNotInteractive) {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		if err != nil {
			return err
		}
		if !ok {
			return errNotConfirmed
		}
		confirmer = term
	}

	var st store.Store
	if sc, ok := cfg.Store(opts.Environment); ok {
		st, err = store.New(ctx, sc)
		if err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
	} else {
		logger.Warn(fmt.Sprintf("No store configured for environment %s", opts.Environment))
	}

	p := pipeline.New(cfg, opts, st)
	p.Confirmer = confirmer
	p.Out = cmd.ErrOrStderr()

	built, err := p.Build(ctx)
	if err != nil {
		return err
	}
	if built.Empty() {
		return nil
	}

	published, err := p.Publish(ctx, built.Assets)
	if published != nil {
		printPushed(cmd.OutOrStdout(), published)
	}
	if err != nil && published != nil && succeeded(published) > 0 {
		return fmt.Errorf("%w: %w", errPartialPublish, err)
	}
	return err
}

func confirmationMessage(tag, env string) string {
	what := "ALL"
	if tag != "" {
		what = "all " + tag
	}
	return fmt.Sprintf("Are you sure you want to publish %s assets in %s (y/N)?", what, env)
}

func printPushed(w io.Writer, res *pipeline.PublishResult) {
	if len(res.Pushed) == 0 {
		_, _ = fmt.Fprintln(w, "Nothing pushed.")
		return
	}
	rows := [][]string{{"URL", "STATUS"}}
	for _, r := range res.Pushed {
		status := strconv.Itoa(r.Status)
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		rows = append(rows, []string{r.URL, status})
	}
	_, _ = fmt.Fprint(w, ascii.Table(rows, maxColumnWidth))
}

func succeeded(res *pipeline.PublishResult) int {
	n := 0
	for _, r := range res.Pushed {
		if r.Err == nil {
			n++
		}
	}
	return n
}
