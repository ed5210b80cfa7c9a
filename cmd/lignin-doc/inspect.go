package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chazu/lignin/pkg/eval"
	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/kernel"
	"github.com/chazu/lignin/pkg/kernel/sdfx"
	"github.com/spf13/cobra"
)

func (a *app) partsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "parts <file>",
		Short: "List the parts of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st := s.State()
			var rows []partRow
			for _, p := range s.Parts() {
				rows = append(rows, rowOf(st, p))
			}
			if all {
				for _, id := range s.ConsumedParts() {
					r := rowOf(st, st.ConsumedParts[id])
					r.Consumed = true
					rows = append(rows, r)
				}
			}
			return a.printParts(cmd, rows)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include parts consumed by booleans and modifiers")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a document for structural problems",
		Long: `Check a document for structural problems. Unlike the other commands,
validate reads documents that fail the load-time checks and lists every
finding; it exits non-zero when any of them is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, findings, err := a.codec.Inspect(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := a.printFindings(cmd, findings); err != nil {
				return err
			}
			var errs int
			for _, f := range findings {
				if f.Severity == graph.SeverityError {
					errs++
				}
			}
			if errs > 0 {
				return fmt.Errorf("%s: %d errors", args[0], errs)
			}
			return nil
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Rewrite a document in another format",
		Long: `Rewrite a document in another format. The output format comes from
--format, then the output file extension, then the configured default.
The compact format keeps the graph and materials only; the part index is
derived again when it is loaded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			to, err := a.formatFor(args[1], format)
			if err != nil {
				return err
			}
			if err := a.write(args[1], f, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s (%s) to %s (%s)\n", args[0], f.Format, args[1], to)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: verbose or compact")
	return cmd
}

func (a *app) meshCmd() *cobra.Command {
	var (
		cells int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "mesh <file>",
		Short: "Evaluate a document and tessellate every root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cells == 0 {
				cells = a.cfg.Kernel.MeshCells
			}
			ev := eval.New(sdfx.New(sdfx.WithMeshCells(cells)),
				eval.WithLogger(a.logger),
				eval.WithMetrics(a.metrics),
			)
			scene, err := ev.Evaluate(cmd.Context(), s.Doc(), eval.Options{Tessellate: true})
			if err != nil {
				return err
			}
			for _, w := range scene.Warnings {
				a.logger.Warn("approximated", "node", w.NodeID, "message", w.Message)
			}
			if err := a.printScene(cmd, scene); err != nil {
				return err
			}
			if out != "" {
				meshes := make([]*kernel.Mesh, 0, len(scene.Parts))
				for _, p := range scene.Parts {
					if p.Mesh != nil {
						meshes = append(meshes, p.Mesh)
					}
				}
				data, err := json.Marshal(meshes)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
			}
			if failed := scene.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d roots failed to build", len(failed), len(scene.Parts))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&cells, "cells", 0, "marching cubes cells along the longest axis (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the meshes as JSON to this file")
	return cmd
}

func (a *app) printScene(cmd *cobra.Command, scene *eval.Scene) error {
	type row struct {
		Root      graph.NodeID `json:"root"`
		Name      string       `json:"name"`
		Material  string       `json:"material"`
		Triangles int          `json:"triangles"`
		Min       [3]float64   `json:"min"`
		Max       [3]float64   `json:"max"`
		Error     string       `json:"error,omitempty"`
	}
	rows := make([]row, 0, len(scene.Parts))
	for _, p := range scene.Parts {
		r := row{Root: p.Root, Name: p.Name, Material: p.Material, Min: p.Min, Max: p.Max}
		if p.Mesh != nil {
			r.Triangles = p.Mesh.TriangleCount()
		}
		if p.Err != nil {
			r.Error = p.Err.Error()
		}
		rows = append(rows, r)
	}
	if a.jsonOutput {
		return writeJSON(cmd, rows)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOT\tNAME\tMATERIAL\tTRIANGLES\tSIZE")
	for _, r := range rows {
		size := fmt.Sprintf("%.1f x %.1f x %.1f", r.Max[0]-r.Min[0], r.Max[1]-r.Min[1], r.Max[2]-r.Min[2])
		if r.Error != "" {
			size = "error: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.Root, r.Name, r.Material, r.Triangles, size)
	}
	return w.Flush()
}
