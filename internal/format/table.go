package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

type Table struct {
	Headers []string
	Rows    [][]string
	// Empty is printed instead of a table without rows.
	Empty string
}

// WriteTable renders v for humans. Colors follow the writer: plain text when it is
// not a terminal or NO_COLOR is set.
func WriteTable(w io.Writer, v any) error {
	t, err := tableFor(v)
	if err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		msg := t.Empty
		if msg == "" {
			msg = "(none)"
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	r := lipgloss.NewRenderer(w)
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	border := r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "250", Dark: "240"})

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	_, err = fmt.Fprintln(w, tbl.Render())
	return err
}

func tableFor(v any) (Table, error) {
	switch x := v.(type) {
	case Table:
		return x, nil
	case *Table:
		return *x, nil
	case Result:
		if x.Table != nil {
			return *x.Table, nil
		}
		return fieldTable(x.Data)
	}
	return fieldTable(v)
}

// fieldTable lists the top-level fields of v (through its JSON form) as two columns.
func fieldTable(v any) (Table, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Table{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		// Not an object: one cell.
		return Table{Headers: []string{"value"}, Rows: [][]string{{strings.Trim(string(b), `"`)}}}, nil
	}
	if inner, ok := m["data"].(map[string]any); ok && len(m) == 1 {
		m = inner
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	t := Table{Headers: []string{"field", "value"}}
	for _, k := range keys {
		t.Rows = append(t.Rows, []string{k, Cell(m[k])})
	}
	return t, nil
}

// Cell renders a JSON value for a table cell (null becomes "-").
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
