package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/staticpush/internal/pipeline"
	"github.com/fulmenhq/staticpush/pkg/ascii"
	"github.com/fulmenhq/staticpush/pkg/asset"
)

// maxColumnWidth keeps asset tables readable with deep relative paths.
const maxColumnWidth = 80

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build bundles and list what would be published",
		Long: `Build runs each qualifying service's build step, discovers its declared assets,
derives the bundle manifests and, with --minify, merges and minifies every bundle.
Nothing is read from or written to a store.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
	addRunFlags(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := runOptions(cmd, cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, opts, nil)
	res, err := p.Build(cmd.Context())
	if err != nil {
		return err
	}
	printBuild(cmd.OutOrStdout(), res)
	return nil
}

func printBuild(w io.Writer, res *pipeline.BuildResult) {
	rows := [][]string{{"KEY", "TYPE", "TAG", "BYTES"}}
	for _, d := range res.Assets {
		if d.IsWarning() {
			continue
		}
		rows = append(rows, []string{d.AssetKey, assetKind(d), d.Tag, strconv.Itoa(len(d.Content))})
	}
	if len(rows) > 1 {
		_, _ = fmt.Fprint(w, ascii.Table(rows, maxColumnWidth))
		_, _ = fmt.Fprintln(w)
	}

	for _, d := range res.Warnings() {
		_, _ = fmt.Fprintf(w, "warning [%s/%s]: %s\n", d.ServiceName, d.Tag, d.Message)
	}

	if res.Services != nil {
		_, _ = fmt.Fprint(w, ascii.Box(res.Services.Summary()))
	}
}

// assetKind is the type column: the format family, qualified by the declared group
// where the two differ.
func assetKind(d asset.Descriptor) string {
	if d.AssetType == "" || d.AssetType == string(d.Type) {
		return string(d.Type)
	}
	return string(d.Type) + "/" + d.AssetType
}
