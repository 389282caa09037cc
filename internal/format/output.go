package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Formats lists the accepted --format values.
var Formats = []string{"json", "table"}

// Result is a command's payload. JSON output is the {"data": ...} envelope; table
// output renders Table when set and a field/value listing of Data otherwise.
type Result struct {
	Data  any
	Table *Table
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"data": r.Data})
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		return WriteTable(w, v)
	default:
		return fmt.Errorf("unknown format: %s (want json or table)", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
