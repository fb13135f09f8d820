package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/knadh/koanf/maps"
)

// Table is a simple column table.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with aligned columns.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter renders a *Table as is. Any other value is flattened
// through its JSON form into sorted KEY/VALUE rows, with nested fields
// joined by dots (e.g. "connection.endpoint.host").
type TableFormatter struct {
	NoHeaders bool
}

// Format formats data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return f.render(w, t)
	case Table:
		return f.render(w, &t)
	}

	t, err := keyValueTable(data)
	if err != nil {
		return err
	}
	return f.render(w, t)
}

func (f *TableFormatter) render(w io.Writer, t *Table) error {
	if f.NoHeaders {
		t = &Table{Rows: t.Rows}
	}
	return t.Render(w)
}

func keyValueTable(data any) (*Table, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("table output needs an object, got %s", strings.TrimSpace(string(raw[:min(len(raw), 32)])))
	}

	flat, _ := maps.Flatten(m, nil, ".")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, k := range keys {
		t.AddRow(k, formatValue(flat[k]))
	}
	return t, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
