package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/interfaces/cli/ui"
	"github.com/turtacn/ChemXGen/pkg/client"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

type submitOptions struct {
	Tool     string
	Molecule string
	File     string
	ID       string
	Settings task.Settings
	Wait     bool
	Poll     time.Duration
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an analysis to the task queue",
		Example: `  chemxgen submit --tool toxicity --molecule 'c1ccccc1O'
  chemxgen submit --tool synthesis --file aspirin.mol --routes 3 --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Tool, "tool", "t", "", "analysis kind: "+kindList())
	f.StringVarP(&opts.Molecule, "molecule", "m", "", "SMILES string or inline MOL block")
	f.StringVarP(&opts.File, "file", "f", "", "read the molecule from a file")
	f.StringVar(&opts.ID, "id", "", "task id (default: generated)")
	f.StringVar(&opts.Settings.Model, "model", "", "model override")
	f.IntVar(&opts.Settings.MaxRoutes, "routes", 0, "synthesis routes to plan (1-10)")
	f.IntVar(&opts.Settings.MaxTime, "max-time", 0, "synthesis time budget")
	f.IntVar(&opts.Settings.MaxDepth, "max-depth", 0, "synthesis route depth")
	f.StringVar(&opts.Settings.RiskLevel, "risk", "", "toxicity risk level (low, medium, high)")
	f.StringVar(&opts.Settings.Database, "database", "", "similarity search database")
	f.StringVar(&opts.Settings.SearchType, "search-type", "", "similarity search type")
	f.BoolVar(&opts.Settings.StrictMode, "strict", false, "strict toxicity screening")
	f.BoolVarP(&opts.Wait, "wait", "w", false, "block until the task finishes")
	f.DurationVar(&opts.Poll, "poll", time.Second, "status poll interval with --wait")
	_ = cmd.MarkFlagRequired("tool")
	return cmd
}

func kindList() string {
	names := make([]string, len(task.Kinds))
	for i, k := range task.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func runSubmit(cmd *cobra.Command, opts *submitOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	mol, err := readMolecule(cliCtx.Fs, opts.Molecule, opts.File)
	if err != nil {
		return err
	}

	req := client.TaskRequest{
		ID:        opts.ID,
		Tool:      task.Kind(opts.Tool),
		Molecule:  mol,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if opts.Settings != (task.Settings{}) {
		s := opts.Settings
		req.Settings = &s
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := requestContext(cmd, cliCtx)
	t, err := cliCtx.Client.Tasks().Submit(ctx, req)
	cancel()
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("Task submitted")

	if opts.Wait {
		if t, err = waitForTask(cmd, cliCtx, t.ID, opts.Poll); err != nil {
			return err
		}
	}
	return PrintResult(cmd, cliCtx, t, func() string { return describeTask(t) })
}

// waitForTask polls until the task leaves running status or the command
// context ends.
func waitForTask(cmd *cobra.Command, cliCtx *CLIContext, id string, poll time.Duration) (*client.Task, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		ctx, cancel := requestContext(cmd, cliCtx)
		t, err := cliCtx.Client.Tasks().Get(ctx, id)
		cancel()
		if err != nil {
			return nil, err
		}
		if t.Status != task.StatusRunning {
			return t, nil
		}
		select {
		case <-cmd.Context().Done():
			return nil, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

// readMolecule returns the inline molecule or the contents of path.
func readMolecule(fs afero.Fs, inline, path string) (string, error) {
	if inline != "" && path != "" {
		return "", errors.InvalidParam("use either --molecule or --file, not both")
	}
	if path == "" {
		return inline, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read molecule file").WithDetail(path)
	}
	return string(data), nil
}

func newListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()
			list, err := cliCtx.Client.Tasks().List(ctx, task.Status(status))
			if err != nil {
				return err
			}
			return PrintResult(cmd, cliCtx, list, func() string { return taskTable(list) })
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (running, completed, failed)")
	return cmd
}

func taskTable(list *client.TaskList) string {
	if len(list.Tasks) == 0 {
		return "No tasks.\n"
	}
	tbl := &ui.Table{
		Headers:  []string{"ID", "TYPE", "STATUS", "PROGRESS", "STARTED", "MOLECULE"},
		MaxWidth: 40,
	}
	for _, t := range list.Tasks {
		tbl.Rows = append(tbl.Rows, []string{
			t.ID,
			string(t.Type),
			string(t.Status),
			fmt.Sprintf("%3.0f%%", t.Progress),
			t.StartTime,
			oneLine(t.Molecule),
		})
	}
	return tbl.Render() + fmt.Sprintf("\n%d running\n", list.Running)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get TASK_ID",
		Short: "Show one task and its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()
			t, err := cliCtx.Client.Tasks().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, cliCtx, t, func() string { return describeTask(t) })
		},
	}
}

func describeTask(t *client.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task:     %s\n", t.ID)
	fmt.Fprintf(&sb, "Type:     %s\n", t.Type)
	fmt.Fprintf(&sb, "Status:   %s\n", ui.StatusLabel(t.Status))
	fmt.Fprintf(&sb, "Progress: %.0f%%\n", t.Progress)
	fmt.Fprintf(&sb, "Started:  %s\n", t.StartTime)
	fmt.Fprintf(&sb, "Molecule: %s\n", oneLine(t.Molecule))
	if len(t.Result) > 0 {
		fmt.Fprintf(&sb, "Result:\n%s\n", indentJSON(t.Result))
	}
	return sb.String()
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every task, finished or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.InvalidParam("clearing removes all tasks; pass --yes to confirm")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()
			if err := cliCtx.Client.Tasks().Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK: task list cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the task queue live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			events, errs, err := cliCtx.Client.Tasks().Watch(cmd.Context())
			if err != nil {
				return err
			}
			clearFn := func() error {
				ctx, cancel := requestContext(cmd, cliCtx)
				defer cancel()
				return cliCtx.Client.Tasks().Clear(ctx)
			}
			model := ui.NewWatchModel(events, errs, clearFn)
			final, err := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(ui.WatchModel); ok && m.Err != nil {
				return m.Err
			}
			return nil
		},
	}
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " (MOL block)"
	}
	return s
}
