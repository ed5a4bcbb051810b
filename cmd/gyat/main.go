// cmd/gyat/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gyat/internal/config"
	"gyat/internal/content"
	"gyat/internal/diff"
	"gyat/internal/index"
	"gyat/internal/logging"
	"gyat/internal/repo"
	"gyat/internal/watch"
	"gyat/internal/workspace"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "gyat",
	Short:         "Gyat is a small snapshot version control system",
	Long:          `Gyat records snapshots of a working tree as commits of content-addressed files and directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the repository config")

	var createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new repository",
		Long:  `Creates the directory name (if needed) and writes an empty repository into it. Without a name the current directory is used.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			var root string
			if len(args) == 0 {
				root, err = repo.Init(cwd)
			} else {
				root, err = repo.Create(cwd, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Println("Created empty gyat repository in", root)
			return nil
		},
	}

	var observeCmd = &cobra.Command{
		Use:   "observe",
		Short: "Stage the differences between the working tree and HEAD",
		Example: `  gyat observe
  gyat observe -p src -p README.md
  gyat observe --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, _ := cmd.Flags().GetStringSlice("paths")
			watchMode, _ := cmd.Flags().GetBool("watch")

			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.Observe(paths)
			if err != nil {
				return fmt.Errorf("observing changes: %w", err)
			}
			printEntries(entries)

			if !watchMode {
				return nil
			}
			return watchRepo(cmd.Context(), r, paths)
		},
	}

	var trackCmd = &cobra.Command{
		Use:   "track",
		Short: "Commit the staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			all, _ := cmd.Flags().GetBool("all")

			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			commit, err := r.Track(message, all)
			if err != nil {
				return fmt.Errorf("tracking changes: %w", err)
			}
			if commit == nil {
				fmt.Println("No changes found")
				return nil
			}

			fmt.Printf("[%s] %s\n", color.YellowString(commit.Hash.Short()), commit.Message)
			fmt.Printf(" %d file(s) changed\n", len(commit.Changes))
			return nil
		},
	}

	var fallbackCmd = &cobra.Command{
		Use:   "fallback <commit>",
		Short: "Restore the working tree to a previous commit",
		Long: `Restores every file to its content in the given commit and records the result
as a new commit on top of HEAD. Files not in that commit are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			delta, err := r.Fallback(args[0])
			if err != nil {
				return fmt.Errorf("falling back: %w", err)
			}
			if delta == nil {
				fmt.Println("Nothing to fall back to")
				return nil
			}
			printDelta(delta)
			return nil
		},
	}

	var woodCmd = &cobra.Command{
		Use:   "wood",
		Short: "Show the commit history from HEAD",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("lines")

			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			commits, err := r.Wood(n)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			if len(commits) == 0 {
				fmt.Println("No commits yet")
				return nil
			}
			printWood(commits, r.Config.Log.DateFormat)
			return nil
		},
	}

	var diffCmd = &cobra.Command{
		Use:   "diff [paths...]",
		Short: "Show changes between the working tree and HEAD",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			results, err := r.Diff(args)
			if err != nil {
				return fmt.Errorf("computing diff: %w", err)
			}
			for _, result := range results {
				printDiff(result)
			}
			return nil
		},
	}

	observeCmd.Flags().StringSliceP("paths", "p", nil, "Paths to observe, relative to the current directory")
	observeCmd.Flags().Bool("watch", false, "Keep running and observe again whenever the working tree changes")

	trackCmd.Flags().StringP("message", "m", "", "Commit message (empty when omitted)")
	trackCmd.Flags().BoolP("all", "a", false, "Observe the whole repository before committing")

	woodCmd.Flags().IntP("lines", "n", 10, "Number of commits to show (0 for all)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(fallbackCmd)
	rootCmd.AddCommand(woodCmd)
	rootCmd.AddCommand(diffCmd)
}

// openRepo opens the repository containing the working directory with a
// logger built from its config and tagged with this invocation's run id.
func openRepo() (*repo.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(workspace.NewPaths(root).Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Core.LogLevel
	if logLevel != "" {
		level = logLevel
	}

	logger, err := logging.NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	r, err := repo.Open(cwd, logger.WithRunID(logging.NewRunID()), repo.WithConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return r, nil
}

// watchRepo observes paths again after every burst of working tree events
// until interrupted. The process keeps the stat cache open meanwhile.
func watchRepo(ctx context.Context, r *repo.Repository, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ignore, err := workspace.LoadIgnore(r.Root)
	if err != nil {
		return err
	}
	w, err := watch.New(r.Root, ignore, r.Logger, watch.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	fmt.Println(color.CyanString("Watching %s (Ctrl-C to stop)", r.Root))
	return w.Run(ctx, func(changed []string) error {
		r.Logger.Info("re-observing", zap.Strings("changed", changed))
		entries, err := r.Observe(paths)
		if err != nil {
			return fmt.Errorf("observing changes: %w", err)
		}
		printEntries(entries)
		return nil
	})
}

func printEntries(entries []index.Entry) {
	if len(entries) == 0 {
		fmt.Println("No changes detected (working tree clean)")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\nChanges staged for the next commit:\n")
	fmt.Println("  (use \"gyat track -m <message>\" to commit them)")
	for _, e := range entries {
		switch e.Kind {
		case content.ChangeNew:
			fmt.Printf("\t%s %s\n", green("new:     "), e.Path)
		case content.ChangeModified:
			fmt.Printf("\t%s %s\n", yellow("modified:"), e.Path)
		case content.ChangeDeleted:
			fmt.Printf("\t%s %s\n", red("deleted: "), e.Path)
		}
	}
	fmt.Println()
}

func printDelta(d *repo.Delta) {
	if d.Empty() {
		fmt.Printf("Working tree already matches %s\n", d.Target.Short())
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, ph := range d.Added {
		fmt.Printf("\t%s %s\n", green("A"), ph.Path)
	}
	for _, ph := range d.Modified {
		fmt.Printf("\t%s %s\n", yellow("M"), ph.Path)
	}
	for _, p := range d.Deleted {
		fmt.Printf("\t%s %s\n", red("D"), p)
	}

	if d.Commit != nil {
		fmt.Printf("\nFell back to %s as %s\n", d.Target.Short(), color.YellowString(d.Commit.Hash.Short()))
	}
}

func printWood(commits []*content.Commit, dateFormat string) {
	yellow := color.New(color.FgYellow)
	for _, c := range commits {
		yellow.Printf("commit %s\n", c.Hash)
		fmt.Printf("Date:   %s\n\n", c.Date.Format(dateFormat))
		for _, line := range strings.Split(c.Message, "\n") {
			fmt.Printf("    %s\n", line)
		}
		fmt.Println()
	}
}

func printDiff(result *diff.DiffResult) {
	fmt.Printf("\ndiff --gyat a/%s b/%s\n", result.Path, result.Path)
	if result.Binary {
		fmt.Print(result.Unified)
		return
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Println(line)
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
	fmt.Printf(" %d insertion(s)(+), %d deletion(s)(-)\n", result.Stats.Additions, result.Stats.Deletions)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
