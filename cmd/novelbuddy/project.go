package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/vcs"
)

const initialCommitMessage = "Initial project structure"

// genres are offered by the interactive init form.
var genres = []string{
	"Literary", "Mystery", "Thriller", "Romance", "Fantasy",
	"Science Fiction", "Historical", "Horror", "Young Adult", "Other",
}

func initCmd() *cobra.Command {
	var (
		meta        project.Metadata
		interactive bool
		noGit       bool
	)
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new novel project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			fresh := project.NewMetadata(meta.Title)
			fresh.Author = meta.Author
			fresh.Genre = meta.Genre
			fresh.TargetWordCount = meta.TargetWordCount
			fresh.Premise = meta.Premise
			if interactive {
				if err := promptMetadata(&fresh); err != nil {
					return err
				}
			}
			if strings.TrimSpace(fresh.Title) == "" {
				fresh.Title = filepath.Base(filepath.Clean(dir))
			}

			files, err := project.Scaffold(dir, fresh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %q in %s\n", fresh.Title, dir)
			for _, f := range files {
				fmt.Fprintf(out, "  %s\n", f)
			}

			if noGit {
				return nil
			}
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			git := vcs.New(cfg.VCS, cliLogger(cmd))
			if err := git.Init(cmd.Context(), dir, initialCommitMessage); err != nil {
				return err
			}
			fmt.Fprintln(out, "Initialized git repository")
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.Title, "title", "", "Project title (default: directory name)")
	cmd.Flags().StringVar(&meta.Author, "author", "", "Author name")
	cmd.Flags().StringVar(&meta.Genre, "genre", "", "Genre")
	cmd.Flags().IntVar(&meta.TargetWordCount, "words", 0, "Target word count")
	cmd.Flags().StringVar(&meta.Premise, "premise", "", "One-paragraph premise")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the project details with a form")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Do not create a git repository")
	return cmd
}

// promptMetadata runs the interactive project form, starting from the
// values already in meta.
func promptMetadata(meta *project.Metadata) error {
	words := ""
	if meta.TargetWordCount > 0 {
		words = strconv.Itoa(meta.TargetWordCount)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&meta.Title).Validate(requiredField("title")),
			huh.NewInput().Title("Author").Value(&meta.Author),
			huh.NewSelect[string]().Title("Genre").Options(huh.NewOptions(genres...)...).Value(&meta.Genre),
			huh.NewInput().Title("Target word count").Value(&words).Validate(validWordCount),
		),
		huh.NewGroup(
			huh.NewText().Title("Premise").Value(&meta.Premise),
			huh.NewText().Title("Themes").Value(&meta.Themes),
			huh.NewText().Title("Setting").Value(&meta.Setting),
			huh.NewText().Title("Key characters").Value(&meta.KeyCharacters),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("init aborted")
		}
		return err
	}
	meta.TargetWordCount, _ = parseWordCount(words)
	return nil
}

func requiredField(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validWordCount(s string) error {
	_, err := parseWordCount(s)
	return err
}

// parseWordCount accepts an empty string, plain digits, and thousands
// separators ("90,000").
func parseWordCount(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("word count must be a positive number, got %q", s)
	}
	return n, nil
}

func assembleCmd() *cobra.Command {
	var (
		active string
		agent  string
		show   bool
	)
	cmd := &cobra.Command{
		Use:   "assemble <project>",
		Short: "Show which project files fit the context window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			entry, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}
			logger := cliLogger(cmd)
			ctxCfg := cfg.Context.WithDefaults()
			estimator := ctxengine.NewEstimator(ctxCfg, logger)
			assembler := ctxengine.NewAssembler(estimator, ctxCfg)

			collector := project.NewCollector(project.NewReader(entry.Path), estimator, logger)
			assembly := assembler.Assemble(cmd.Context(), collector.Collect(active, agent))

			out := cmd.OutOrStdout()
			if show {
				_, err := io.WriteString(out, assembly.Context)
				return err
			}
			return printJSON(out, assembly.Report)
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "Project-relative path of the file being edited")
	cmd.Flags().StringVar(&agent, "agent", "general", "Agent whose reference material to include")
	cmd.Flags().BoolVar(&show, "print", false, "Print the assembled context instead of the report")
	return cmd
}

func patchCmd() *cobra.Command {
	var (
		find    string
		replace string
		write   bool
	)
	cmd := &cobra.Command{
		Use:   "patch <file>",
		Short: "Fuzzy find-and-replace in a file, printing the diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if find == "" {
				return errors.New("--find is required")
			}
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			before, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			res, err := patch.NewEngine(cfg.Patch).Apply(string(before), find, replace)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "match: %s (score %.2f)\n", res.Match.Strategy, res.Match.Score)
			fmt.Fprint(out, patch.Diff(filepath.Base(path), string(before), res.Content))
			if !write {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			return os.WriteFile(path, []byte(res.Content), info.Mode().Perm())
		},
	}
	cmd.Flags().StringVar(&find, "find", "", "Text to find; whitespace and small differences are tolerated")
	cmd.Flags().StringVar(&replace, "replace", "", "Replacement text")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file")
	return cmd
}

func opsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ops <project> <response-file>",
		Short: "Apply the <file_operation> blocks in a saved response",
		Long: "Apply the <file_operation> blocks in a saved model response to a project.\n" +
			"Use - as the response file to read standard input.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			parsed := fileops.Parse(text)
			out := cmd.OutOrStdout()
			for _, rej := range parsed.Rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "rejected block: %s\n", rej.Reason)
			}
			if len(parsed.Ops) == 0 {
				return errors.New("no valid <file_operation> blocks found")
			}
			if dryRun {
				return printJSON(out, parsed.Ops)
			}

			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			entry, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, cfg, []string{"memory"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeRuntime(rt)
			if err := rt.Start(); err != nil {
				return err
			}

			res := rt.Dispatcher.Apply(cmd.Context(), fileops.Target{Root: entry.Path, ProjectID: entry.Metadata.ID}, parsed.Ops)
			if err := printJSON(out, res); err != nil {
				return err
			}
			if res.Successful < res.Total {
				return fmt.Errorf("%d of %d operations failed", res.Total-res.Successful, res.Total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the parsed operations without applying them")
	return cmd
}

// readInput reads name, or r when name is "-".
func readInput(r io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <project>",
		Short: "Render the manuscript chapters to a single HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			entry, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}
			rel, err := project.Export(project.NewReader(entry.Path), entry.Metadata)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(entry.Path, filepath.FromSlash(rel)))
			return nil
		},
	}
}

func reindexCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "reindex <project>",
		Short: "Rebuild a project's memory index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			entry, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, cfg, []string{"memory"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			res, err := indexer.Reindex(cmd.Context(), rt.Memory, project.NewReader(entry.Path), entry.Metadata.ID, !keep, rt.Logger)
			if errors.Is(err, indexer.ErrUnavailable) {
				return errors.New("memory is not configured: add a memory.sqlite module to the configuration")
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "Index over the existing chunks instead of clearing them first")
	return cmd
}
