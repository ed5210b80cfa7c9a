package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
	"github.com/chazu/lignin/pkg/store"
	"github.com/spf13/cobra"
)

// partRow is the printed form of one part.
type partRow struct {
	ID       part.ID      `json:"id"`
	Type     part.Type    `json:"type"`
	Kind     string       `json:"kind"`
	Name     string       `json:"name"`
	Root     graph.NodeID `json:"root"`
	Material string       `json:"material"`
	Consumed bool         `json:"consumed,omitempty"`
}

func rowOf(st *store.State, p part.Info) partRow {
	m, _ := st.Material(p.PartID())
	return partRow{
		ID:       p.PartID(),
		Type:     p.Type(),
		Kind:     p.Kind(),
		Name:     p.DisplayName(),
		Root:     p.Transforms().TranslateID,
		Material: m,
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func (a *app) printIDs(cmd *cobra.Command, verb string, rows []partRow) error {
	if a.jsonOutput {
		return writeJSON(cmd, rows)
	}
	for _, r := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, r.ID, r.Name)
	}
	return nil
}

func (a *app) printParts(cmd *cobra.Command, rows []partRow) error {
	if a.jsonOutput {
		return writeJSON(cmd, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No parts.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tKIND\tNAME\tROOT\tMATERIAL")
	for _, r := range rows {
		name := r.Name
		if r.Consumed {
			name += " (consumed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Kind, name, r.Root, r.Material)
	}
	return w.Flush()
}

func (a *app) printFindings(cmd *cobra.Command, findings []graph.ValidationError) error {
	if a.jsonOutput {
		type finding struct {
			Severity string       `json:"severity"`
			NodeID   graph.NodeID `json:"nodeId,omitempty"`
			Message  string       `json:"message"`
		}
		out := make([]finding, 0, len(findings))
		for _, f := range findings {
			out = append(out, finding{Severity: f.Severity.String(), NodeID: f.NodeID, Message: f.Message})
		}
		return writeJSON(cmd, out)
	}
	if len(findings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	sorted := append([]graph.ValidationError(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Severity < sorted[j].Severity })
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tNODE\tMESSAGE")
	for _, f := range sorted {
		node := "-"
		if !f.NodeID.IsZero() {
			node = f.NodeID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Severity, node, f.Message)
	}
	return w.Flush()
}

// printMetrics dumps every collected sample as "name{labels} value".
func (a *app) printMetrics(cmd *cobra.Command) error {
	families, err := a.reg.Gather()
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(out, "%s %g\n", name, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(out, "%s_count %d\n", name, m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}
