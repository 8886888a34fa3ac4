package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"gopkg.in/yaml.v3"
)

// Printer writes command results as an aligned table, JSON or YAML.
// Records keep their column order in every format.
type Printer struct {
	Format string
	Writer io.Writer
}

// Records prints records as rows under a header of columns.
func (p *Printer) Records(columns []string, recs []core.Record) error {
	switch p.Format {
	case "json":
		out := make([]json.RawMessage, 0, len(recs))
		for _, r := range recs {
			b, err := orderedJSON(columns, r)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return p.json(out)
	case "yaml":
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range recs {
			seq.Content = append(seq.Content, orderedYAML(columns, r))
		}
		return p.yaml(seq)
	}

	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cells(columns), "\t"))
	for _, r := range recs {
		fmt.Fprintln(tw, strings.Join(cells(r.Values(columns)), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.Writer, "(%d record(s))\n", len(recs))
	return nil
}

// Record prints one record as column/value pairs.
func (p *Printer) Record(columns []string, rec core.Record) error {
	switch p.Format {
	case "json":
		b, err := orderedJSON(columns, rec)
		if err != nil {
			return err
		}
		return p.json(json.RawMessage(b))
	case "yaml":
		return p.yaml(orderedYAML(columns, rec))
	}

	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	for _, col := range columns {
		fmt.Fprintf(tw, "%s\t%s\n", cell(col), cell(rec[col]))
	}
	return tw.Flush()
}

// List prints plain values, one per line in table format.
func (p *Printer) List(values []string) error {
	switch p.Format {
	case "json":
		return p.json(values)
	case "yaml":
		return p.yaml(values)
	}
	for _, v := range values {
		fmt.Fprintln(p.Writer, v)
	}
	return nil
}

// Result prints v for json and yaml, or text for table.
func (p *Printer) Result(v interface{}, text string) error {
	switch p.Format {
	case "json":
		return p.json(v)
	case "yaml":
		return p.yaml(v)
	}
	_, err := fmt.Fprintln(p.Writer, text)
	return err
}

func (p *Printer) json(v interface{}) error {
	enc := json.NewEncoder(p.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) yaml(v interface{}) error {
	enc := yaml.NewEncoder(p.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// orderedJSON encodes rec as an object with keys in column order.
func orderedJSON(columns []string, rec core.Record) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(rec[col])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// orderedYAML builds a mapping node with keys in column order. Values are
// always strings, so "0012" is not re-read as a number.
func orderedYAML(columns []string, rec core.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, col := range columns {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rec[col]},
		)
	}
	return m
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ")

func cell(s string) string { return cellReplacer.Replace(s) }

func cells(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = cell(v)
	}
	return out
}
