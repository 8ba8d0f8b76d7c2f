package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/client"
)

var filters = []task.Status{"", task.StatusRunning, task.StatusCompleted, task.StatusFailed}

// Messages driving WatchModel.
type (
	MsgTasks        client.TaskList
	MsgStreamClosed struct{ Err error }
	MsgCleared      struct{ Err error }
)

// WatchModel is a live view of the task queue fed by a watch stream.
type WatchModel struct {
	events <-chan client.TaskList
	errs   <-chan error
	clear  func() error
	now    func() time.Time

	List     client.TaskList
	Filter   int
	Err      error
	Received bool

	bar     progress.Model
	spinner spinner.Model
	width   int
}

// NewWatchModel builds the model. clear is invoked on the "c" key and may
// be nil to disable clearing.
func NewWatchModel(events <-chan client.TaskList, errs <-chan error, clearFn func() error) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleWarning
	return WatchModel{
		events:  events,
		errs:    errs,
		clear:   clearFn,
		now:     time.Now,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(24)),
		spinner: s,
		width:   100,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next)
}

// next blocks for the following snapshot.
func (m WatchModel) next() tea.Msg {
	list, ok := <-m.events
	if !ok {
		var err error
		if m.errs != nil {
			err = <-m.errs
		}
		return MsgStreamClosed{Err: err}
	}
	return MsgTasks(list)
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "f":
			m.Filter = (m.Filter + 1) % len(filters)
			return m, nil
		case "c":
			if m.clear == nil {
				return m, nil
			}
			clearFn := m.clear
			return m, func() tea.Msg { return MsgCleared{Err: clearFn()} }
		}
		return m, nil

	case MsgTasks:
		m.List = client.TaskList(msg)
		m.Received = true
		return m, m.next

	case MsgCleared:
		m.Err = msg.Err
		return m, nil

	case MsgStreamClosed:
		m.Err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Visible returns the tasks passing the current filter.
func (m WatchModel) Visible() []*task.Task {
	want := filters[m.Filter]
	if want == "" {
		return m.List.Tasks
	}
	var out []*task.Task
	for _, t := range m.List.Tasks {
		if t.Status == want {
			out = append(out, t)
		}
	}
	return out
}

func (m WatchModel) View() string {
	var sb strings.Builder
	filter := "all"
	if f := filters[m.Filter]; f != "" {
		filter = string(f)
	}
	sb.WriteString(StyleTitle.Render("ChemXGen tasks"))
	sb.WriteString(StyleSubtle.Render(fmt.Sprintf("  %d running · filter: %s", m.List.Running, filter)))
	sb.WriteString("\n\n")

	if !m.Received {
		sb.WriteString(m.spinner.View() + " connecting…\n")
	} else if tasks := m.Visible(); len(tasks) == 0 {
		sb.WriteString(StyleSubtle.Render("No tasks.") + "\n")
	} else {
		molWidth := m.width - 70
		if molWidth < 12 {
			molWidth = 12
		}
		for _, t := range tasks {
			sb.WriteString(m.row(t, molWidth))
			sb.WriteString("\n")
		}
	}

	if m.Err != nil {
		sb.WriteString("\n" + StyleError.Render("error: "+m.Err.Error()) + "\n")
	}
	sb.WriteString("\n" + StyleSubtle.Render("f filter · c clear · q quit"))
	return sb.String()
}

func (m WatchModel) row(t *task.Task, molWidth int) string {
	status := StatusLabel(t.Status)
	if t.Status == task.StatusRunning {
		status = m.spinner.View() + " " + StyleWarning.Render("running")
	}
	return fmt.Sprintf("%-12s %-13s %s %s  %s",
		string(t.Type),
		status,
		m.bar.ViewAs(t.Progress/100),
		StyleSubtle.Render(m.elapsed(t)),
		StyleText.Render(Truncate(t.Molecule, molWidth)),
	)
}

func (m WatchModel) elapsed(t *task.Task) string {
	start, err := time.Parse(time.RFC3339Nano, t.StartTime)
	if err != nil {
		return "     "
	}
	d := m.now().Sub(start).Truncate(time.Second)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%5s", d)
}
