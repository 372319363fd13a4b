/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/staticpush/internal/ops"
	"github.com/fulmenhq/staticpush/pkg/build"
	"github.com/fulmenhq/staticpush/pkg/buildinfo"
	"github.com/fulmenhq/staticpush/pkg/bundle"
	"github.com/fulmenhq/staticpush/pkg/exitcode"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/publish"
	"github.com/fulmenhq/staticpush/pkg/service"
	"github.com/fulmenhq/staticpush/pkg/store"
)

var (
	errConfig         = errors.New("configuration error")
	errNotConfirmed   = errors.New("publish not confirmed")
	errPartialPublish = errors.New("some assets failed to publish")
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staticpush",
		Short: "Bundle and publish static assets of many services",
		Long: `Staticpush discovers the static assets each service repository declares, merges and
minifies them into one bundle per tag, and publishes only what changed to the
environment's object store after you review a diff of each bundle manifest.

Examples:
   staticpush build --minify           # Build and list bundles without publishing
   staticpush push --env production    # Diff, confirm and publish
   staticpush push --no-prompt --auto-confirm=no
   staticpush version`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("no-op", false, "Diff and report without pushing anything")
	cmd.PersistentFlags().String("config", "", "Config file (default: staticpush.yaml in ., $HOME or the staticpush home)")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("staticpush {{.Version}}\n")

	// Grouped help by command group (Publish → Support)
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		if c != c.Root() {
			c.Println(c.UsageString())
			return
		}
		reg := ops.GetRegistry()
		counts := reg.ListGroups()
		c.Println(c.Long)
		c.Println()
		for _, g := range []struct {
			group ops.CommandGroup
			title string
		}{{ops.GroupPublish, "Publish Commands:"}, {ops.GroupSupport, "Support Commands:"}} {
			if counts[g.group] == 0 {
				continue
			}
			c.Println(g.title)
			for _, r := range reg.GetCommandsByGroup(g.group) {
				c.Printf("  %-12s %s\n", r.Name, r.Description)
			}
			c.Println()
		}
		if mutating := reg.GetMutatingCommands(); len(mutating) > 0 {
			names := make([]string, 0, len(mutating))
			for _, r := range mutating {
				names = append(names, r.Name)
			}
			c.Printf("Writes to the store (preview with --no-op): %s\n\n", strings.Join(names, ", "))
		}
		c.Println("Flags:")
		c.Print(c.LocalFlags().FlagUsages())
	})

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newPushCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitCode(err))
	}
}

func init() {
	registerSubcommands(rootCmd)

	for _, r := range []struct {
		name, desc string
		group      ops.CommandGroup
		mutates    bool
	}{
		{"build", "Build bundles and list what would be published", ops.GroupPublish, false},
		{"push", "Diff, confirm and publish changed bundles", ops.GroupPublish, true},
		{"version", "Show version information", ops.GroupSupport, false},
	} {
		if err := ops.RegisterCommand(r.name, r.group, findCommand(rootCmd, r.name), r.desc, r.mutates); err != nil {
			panic(err)
		}
	}
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var (
		svcErr    *build.ServiceError
		minErr    *bundle.MinifyError
		cssErr    *bundle.NoCSSError
		statusErr *store.StatusError
		storeErr  *store.Error
	)
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, errConfig):
		return exitcode.ConfigError
	case errors.Is(err, errNotConfirmed):
		return exitcode.NotConfirmed
	case errors.Is(err, errPartialPublish):
		return exitcode.PartialPublished
	case errors.As(err, &svcErr):
		return exitcode.BuildError
	case errors.As(err, &minErr), errors.As(err, &cssErr):
		return exitcode.BundleError
	case errors.Is(err, service.ErrInvalidDeclaration):
		return exitcode.ValidationError
	case errors.Is(err, publish.ErrStoreUnreachable), errors.As(err, &statusErr), errors.As(err, &storeErr):
		return exitcode.StoreError
	default:
		return exitcode.GeneralError
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noOp, _ := cmd.Flags().GetBool("no-op")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "staticpush",
		NoOp:      noOp,
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
