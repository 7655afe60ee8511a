package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/wmorder/errors"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the formats Render accepts.
var Formats = []string{FormatText, FormatTable, FormatJSON, FormatYAML}

// Render writes p to w. text prints one unit directory per line in build
// order; table adds sequence, level, kind and output columns.
func Render(w io.Writer, p *Plan, format string) error {
	switch format {
	case FormatText, "":
		for _, e := range p.Order {
			if _, err := fmt.Fprintln(w, e.Dir); err != nil {
				return err
			}
		}
		return nil
	case FormatTable:
		return writeTable(w, p)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.InvalidInput("format", fmt.Sprintf("unknown format %q", format)).
			WithDetail("allowed", Formats)
	}
}

func writeTable(w io.Writer, p *Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tLEVEL\tKIND\tOUTPUT\tUNIT")
	for _, e := range p.Order {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", e.Seq, e.Level, e.Kind, e.Output, e.Rel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d units, %d edges, %d levels, digest %s\n", p.Units, p.Edges, len(p.Levels), p.Digest[:12])
	return err
}
