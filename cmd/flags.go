package cmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fulmenhq/staticpush/internal/pipeline"
	"github.com/fulmenhq/staticpush/pkg/config"
)

// configFlags maps config keys onto the run flags that override them.
var configFlags = map[string]string{
	"environment": "env",
	"concurrency": "concurrency",
	"workspace":   "workspace",
	"repos":       "repos",
}

// addRunFlags registers the flags shared by build and push.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("build-number", "b", pipeline.DefaultBuildNumber, "Build number used in asset keys")
	f.StringP("tag", "t", "", "Only process assets of this tag")
	f.String("repo-tag", "", "Only process repositories declaring this tag")
	f.StringP("repo-pattern", "r", "", "Only process repositories whose name matches this regular expression")
	f.Bool("minify", false, "Merge and minify each js and css bundle")
	f.Bool("ignore-failure", false, "Continue when a service fails to build")
	f.IntP("concurrency", "j", 0, "Services built at once (default: number of CPUs)")
	f.StringP("env", "e", "", "Target environment (default from config)")
	f.String("workspace", "", "Directory containing the repositories (default from config)")
	f.StringSlice("repos", nil, "Repositories to process (default from config)")
}

// loadConfig reads the config file and environment with the run flags bound on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := bindConfigFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

func bindConfigFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range configFlags {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("%w: bind --%s: %w", errConfig, name, err)
		}
	}
	return nil
}

// runOptions turns the run flags into pipeline options.
func runOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	f := cmd.Flags()
	buildNumber, _ := f.GetString("build-number")
	tag, _ := f.GetString("tag")
	repoTag, _ := f.GetString("repo-tag")
	pattern, _ := f.GetString("repo-pattern")
	minify, _ := f.GetBool("minify")
	ignoreFailure, _ := f.GetBool("ignore-failure")
	noColor, _ := f.GetBool("no-color")

	opts := pipeline.Options{
		Repos:         cfg.Repos,
		BuildNumber:   buildNumber,
		TagFilter:     tag,
		RepoTag:       repoTag,
		Minify:        minify,
		IgnoreFailure: ignoreFailure,
		Concurrency:   cfg.Workers(),
		Environment:   cfg.Environment,
		Color:         !noColor && term.IsTerminal(int(os.Stderr.Fd())),
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return opts, fmt.Errorf("%w: --repo-pattern: %w", errConfig, err)
		}
		opts.RepoPattern = re
	}
	return opts, nil
}
