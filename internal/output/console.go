package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/progress"
)

// Console is the default interactive Writer: a live per-item progress
// table plus colorized final summaries, grounded in the teacher's table
// and JSON/YAML formatters (internal/util/output_format.go) with color
// and a tty check layered on for the progress stream.
type Console struct {
	Out   io.Writer
	Err   io.Writer
	color bool

	mu   sync.Mutex
	rows map[item.Id]progress.Update
}

// NewConsole builds a Console writing to stdout/stderr, enabling color
// only when stdout is a real terminal (the teacher's CLI commands never
// force color on when piped, matching every other example repo that
// wires go-isatty the same way).
func NewConsole() *Console {
	return &Console{
		Out:   os.Stdout,
		Err:   os.Stderr,
		color: isatty.IsTerminal(os.Stdout.Fd()),
		rows:  make(map[item.Id]progress.Update),
	}
}

func (c *Console) ProgressBegin(ids []item.Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.rows[id] = progress.Update{ItemID: id, Status: progress.Initialized}
	}
}

func (c *Console) ProgressUpdate(u progress.Update) {
	c.mu.Lock()
	c.rows[u.ItemID] = u
	c.mu.Unlock()

	line := fmt.Sprintf("%s: %s", u.ItemID, u.Status)
	if u.Limit != nil {
		line = fmt.Sprintf("%s: %s (%s/%s)", u.ItemID, u.Status,
			units.HumanSize(float64(u.UnitsDone)), units.HumanSize(float64(*u.Limit)))
	}
	fmt.Fprintln(c.Out, c.colorize(u.Status, line))
}

func (c *Console) colorize(s progress.Status, line string) string {
	if !c.color {
		return line
	}
	switch s {
	case progress.CompleteSuccess:
		return color.GreenString(line)
	case progress.CompleteFail:
		return color.RedString(line)
	case progress.CompleteInterrupted:
		return color.YellowString(line)
	default:
		return line
	}
}

func (c *Console) ProgressEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := tablewriter.NewWriter(c.Out)
	table.SetHeader([]string{"Item", "Status"})
	table.SetAutoWrapText(false)
	table.SetRowLine(true)
	table.SetCenterSeparator("+")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	for id, u := range c.rows {
		table.Append([]string{string(id), u.Status.String()})
	}
	table.Render()
}

// Present renders data in the requested format, matching the teacher's
// JSONOutputFormatter/YAMLOutputFormatter/TableOutputFormatter split.
func (c *Console) Present(format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(c.Out)
		defer enc.Close()
		return enc.Encode(data)
	case FormatTable:
		rows, ok := data.(TableData)
		if !ok {
			return fmt.Errorf("output: FormatTable requires TableData, got %T", data)
		}
		table := tablewriter.NewWriter(c.Out)
		table.SetHeader(rows.Headers)
		table.AppendBulk(rows.Rows)
		table.SetAutoWrapText(false)
		table.SetRowLine(true)
		table.Render()
		return nil
	default:
		return fmt.Errorf("output: unknown format %d", format)
	}
}

func (c *Console) WriteErr(err error) {
	line := err.Error()
	if c.color {
		line = color.RedString(line)
	}
	fmt.Fprintln(c.Err, line)
}

// TableData is the payload Present expects for FormatTable.
type TableData struct {
	Headers []string
	Rows    [][]string
}
