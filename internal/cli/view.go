package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/render/fieldmap"
)

var (
	viewLabelStyle = lipgloss.NewStyle().Width(12).Align(lipgloss.Center)
	viewDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand opens the interactive block browser.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		config string
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "view [layout.csv]",
		Short: "Browse a layout block by block",
		Long: `Browse a layout block by block in the terminal.

Opens a layout CSV, or a run from the history with --run, and shows one block
at a time as it lies on the field, top row first. Cells are colored by pool.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res *pipeline.Result
				err error
			)
			switch {
			case runID != "":
				res, err = loadRun(cmd.Context(), runID)
			case len(args) == 1:
				res, err = loadLayout(args[0], config)
			default:
				return fmt.Errorf("give a layout CSV or --run")
			}
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newBlockModel(res), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&config, "config", "c", "", "trial file (default: ./trial.toml or the built-in trial)")
	cmd.Flags().StringVar(&runID, "run", "", "open a run from the history")

	return cmd
}

func loadLayout(path, config string) (*pipeline.Result, error) {
	opts, err := loadOptions(config)
	if err != nil {
		return nil, err
	}
	tbl, err := table.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return pipeline.FromTable(opts, tbl)
}

func loadRun(ctx context.Context, id string) (*pipeline.Result, error) {
	hist, err := openHistory()
	if err != nil {
		return nil, err
	}
	defer hist.Close()
	run, err := hist.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	opts, err := run.Options()
	if err != nil {
		return nil, err
	}
	tbl, err := run.Table()
	if err != nil {
		return nil, err
	}
	return pipeline.FromTable(opts, tbl)
}

// blockModel is the bubbletea model of the block browser.
type blockModel struct {
	res    *pipeline.Result
	blocks []int
	cursor int
}

func newBlockModel(res *pipeline.Result) blockModel {
	return blockModel{res: res, blocks: res.Table.Blocks()}
}

func (m blockModel) Init() tea.Cmd {
	return nil
}

func (m blockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h", "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l", "down", "j":
			if m.cursor < len(m.blocks)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.blocks) - 1
		}
	}
	return m, nil
}

// current returns the ID of the block on screen.
func (m blockModel) current() int {
	if len(m.blocks) == 0 {
		return -1
	}
	return m.blocks[m.cursor]
}

func (m blockModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.res.Title()))
	b.WriteString("\n")
	b.WriteString(viewDimStyle.Render("←/→ block  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.blocks) == 0 {
		b.WriteString(viewDimStyle.Render("layout has no blocks"))
		return b.String()
	}

	id := m.current()
	b.WriteString(StyleValue.Bold(true).Render(table.BlockName(id)))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(m.typeName(id)))
	b.WriteString("\n")
	grid, err := m.blockGrid(id)
	b.WriteString(grid)
	b.WriteString("\n")
	b.WriteString(viewDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.blocks))))
	if err != nil {
		b.WriteString("\n")
		b.WriteString(StyleConflict.Render(err.Error()))
	}
	return b.String()
}

func (m blockModel) typeName(id int) string {
	if id == table.AnchorBlock {
		return "reference plot"
	}
	t := m.res.Grid.ForBlock(id)
	if t == arrange.NoType || m.res.Registry == nil {
		return "unassigned"
	}
	st, err := m.res.Registry.Type(t)
	if err != nil {
		return "unassigned"
	}
	return st.Name
}

// blockGrid lays out a block's cells top row first. Cells whose color cannot
// be resolved are drawn plain and the first such error is returned.
func (m blockModel) blockGrid(id int) (string, error) {
	recs := m.res.Table.ByBlock(id)
	rows, cols := 0, 0
	for _, r := range recs {
		rows = max(rows, r.Row+1)
		cols = max(cols, r.Col+1)
	}
	cells := make([][]string, rows)
	for i := range cells {
		cells[i] = make([]string, cols)
		for j := range cells[i] {
			cells[i][j] = viewLabelStyle.Render("")
		}
	}
	var colorErr error
	for _, r := range recs {
		label := viewLabelStyle.Render(r.Label)
		if r.IsAssigned() {
			color, err := fieldmap.CellColor(m.res.Registry, r)
			switch {
			case err == nil:
				label = swatch(color, label)
			case colorErr == nil:
				colorErr = err
			}
		}
		cells[rows-1-r.Row][r.Col] = label
	}

	lines := make([]string, rows)
	for i, row := range cells {
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, row...)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorDim).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...)), colorErr
}
