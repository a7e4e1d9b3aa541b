package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printRows writes rows as an aligned table. Columns follow the declared
// field order; fields outside the shape are appended sorted.
func printRows(w io.Writer, shape *types.Shape, rows []types.Row) error {
	cols := shape.FieldNames()
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	var extra []string
	present := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			if !known[k] && !present[k] {
				present[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	cols = append(cols, extra...)
	if len(rows) > 0 {
		// Drop declared columns a projection left out.
		kept := cols[:0]
		for _, c := range cols {
			for _, r := range rows {
				if _, ok := r[c]; ok {
					kept = append(kept, c)
					break
				}
			}
		}
		cols = kept
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case []any, map[string]any:
		data, _ := json.Marshal(x)
		return string(data)
	}
	return fmt.Sprint(v)
}

// readInput returns the literal JSON argument, or stdin when it is "-".
func readInput(stdin io.Reader, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(stdin)
	}
	return []byte(arg), nil
}

func decodeObject(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, usagef("invalid JSON object: %v", err)
	}
	return m, nil
}

// readLines decodes one JSON value per non-empty line of the named file,
// or of stdin when path is "-".
func readLines(stdin io.Reader, path string) ([]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var items []any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, usagef("line %d: invalid JSON: %v", line, err)
		}
		items = append(items, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}

// parseKey converts a command-line key to the primary key's declared type.
func parseKey(e types.Endpoint, raw string) (any, error) {
	f, ok := e.Returns.Field(e.PrimaryKey)
	if !ok {
		return raw, nil
	}
	switch f.Type {
	case types.TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, usagef("key %q is not an integer", raw)
		}
		return n, nil
	case types.TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, usagef("key %q is not a number", raw)
		}
		return n, nil
	}
	return raw, nil
}
