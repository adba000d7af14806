package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

// Printer renders results as table, json or yaml.
type Printer struct {
	format string
	writer io.Writer
}

func NewPrinter() *Printer {
	format := viper.GetString("output")
	if format == "" {
		format = "table"
	}
	return &Printer{format: format, writer: os.Stdout}
}

func (p *Printer) PrintAnalysis(a *dump.Analysis) error {
	switch p.format {
	case "json", "yaml":
		return p.structured(a)
	}
	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DUMP ID:\t%s\n", a.DumpID)
	fmt.Fprintf(w, "PRIORITY:\t%s\n", a.Priority)
	fmt.Fprintf(w, "PROVIDER:\t%s\n", a.Generation.Provider)
	fmt.Fprintf(w, "CREATED:\t%s\n", a.CreatedAt.Format(time.RFC3339))
	for _, key := range []string{"root_cause", "technical_analysis", "impact_analysis", "suggested_fix_code", "confidence", "raw_text"} {
		if v, ok := a.Summary[key]; ok {
			fmt.Fprintf(w, "%s:\t%v\n", key, v)
		}
	}
	return w.Flush()
}

func (p *Printer) PrintList(items []dump.RecentAnalysis) error {
	switch p.format {
	case "json", "yaml":
		return p.structured(items)
	}
	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DUMP ID\tPRIORITY\tCREATED\tROOT CAUSE")
	for _, it := range items {
		cause, _ := it.Summary["root_cause"].(string)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.DumpID, it.Priority, it.CreatedAt.Format(time.RFC3339), shorten(cause, 60))
	}
	return w.Flush()
}

func (p *Printer) PrintMap(m map[string]any) error {
	if p.format == "table" {
		p.format = "yaml"
	}
	return p.structured(m)
}

// structured goes through JSON first so yaml output uses the wire field names.
func (p *Printer) structured(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if p.format != "yaml" {
		_, err = fmt.Fprintln(p.writer, string(data))
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
