package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// parseTarget maps a command-line target onto a request target. Anything
// with a scheme is treated as absolute.
func parseTarget(raw string) (teatime.Target, error) {
	if raw == "" {
		return teatime.Target{}, constants.ErrTargetRequired
	}

	if strings.Contains(raw, "://") {
		return teatime.Abs(raw)
	}

	return teatime.Rel(raw), nil
}

// parseParams turns key=value arguments into request parameters. Values that
// parse as JSON scalars keep their type; everything else stays a string.
func parseParams(args []string) (teatime.Params, error) {
	if len(args) == 0 {
		return nil, nil
	}

	params := teatime.Params{}

	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%q: %w", arg, constants.ErrInvalidKeyValue)
		}

		params.Set(key, coerceValue(value))
	}

	return params, nil
}

func coerceValue(value string) any {
	var decoded any

	err := json.Unmarshal([]byte(value), &decoded)
	if err != nil {
		return value
	}

	switch decoded.(type) {
	case bool, float64, nil:
		return decoded
	default:
		return value
	}
}

// renderDocument prints a decoded JSON document in the configured output
// format.
func renderDocument(doc any) error {
	output := viper.GetString("output")

	switch output {
	case constants.FormatJSON:
		return renderJSON(doc)

	case constants.FormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(constants.JSONIndentSize)

		return encoder.Encode(doc)

	case constants.FormatTable, "":
		// Tables suit arrays of flat objects; anything else renders as JSON.
		if items, ok := doc.([]any); ok {
			return displayItemsTable(items)
		}

		return renderJSON(doc)

	default:
		return fmt.Errorf("%q: %w", output, constants.ErrInvalidOutput)
	}
}

func renderJSON(doc any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}

// displayItemsTable renders an array of objects with columns taken from the
// first element's keys.
func displayItemsTable(items []any) error {
	if len(items) == 0 {
		_, _ = os.Stdout.WriteString("No results.\n")

		return nil
	}

	first, ok := items[0].(map[string]any)
	if !ok {
		return renderJSON(items)
	}

	columns := make([]string, 0, len(first))
	for column := range first {
		columns = append(columns, column)
	}

	sort.Strings(columns)

	table := tablewriter.NewWriter(os.Stdout)

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table.Header(header...)

	for _, item := range items {
		row := make([]string, len(columns))

		obj, ok := item.(map[string]any)
		if ok {
			for i, column := range columns {
				row[i] = formatCell(obj[column])
			}
		} else {
			row[0] = formatCell(item)
		}

		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	fmt.Printf("\n%d result(s)\n", len(items))

	return nil
}

func formatCell(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}

		return string(raw)
	}
}
