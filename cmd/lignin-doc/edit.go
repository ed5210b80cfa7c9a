package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
	"github.com/chazu/lignin/pkg/persist"
	"github.com/spf13/cobra"
)

func (a *app) newCmd() *cobra.Command {
	var (
		format string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			f, err := a.formatFor(path, format)
			if err != nil {
				return err
			}
			file := persist.NewFile(a.newStore().Snapshot())
			file.Format = f
			if err := a.write(path, file, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", path, f)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format: verbose or compact")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file> <cube|cylinder|sphere|cone>",
		Short: "Add a primitive part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, ok := s.AddPrimitive(part.Shape(args[1]))
			if !ok {
				return fmt.Errorf("unknown shape %q", args[1])
			}
			if err := a.save(args[0], f, s); err != nil {
				return err
			}
			p, _ := s.Part(id)
			return a.printIDs(cmd, "Added", []partRow{rowOf(s.State(), p)})
		},
	}
}

func (a *app) booleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boolean <file> <union|difference|intersection> <part-a> <part-b>",
		Short: "Combine two parts",
		Long: `Combine two parts with a boolean operation. Both inputs are consumed
and stay in the document as children of the new part.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := graph.OpType(args[1])
			if !kind.IsBoolean() {
				return fmt.Errorf("unknown boolean %q", args[1])
			}
			f, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, ok := s.ApplyBoolean(kind, part.ID(args[2]), part.ID(args[3]))
			if !ok {
				return fmt.Errorf("cannot combine %s and %s", args[2], args[3])
			}
			if err := a.save(args[0], f, s); err != nil {
				return err
			}
			p, _ := s.Part(id)
			return a.printIDs(cmd, "Created", []partRow{rowOf(s.State(), p)})
		},
	}
}

func (a *app) duplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <file> <part>...",
		Short: "Copy parts with an offset",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ids := make([]part.ID, 0, len(args)-1)
			for _, arg := range args[1:] {
				ids = append(ids, part.ID(arg))
			}
			created := s.DuplicateParts(ids)
			if len(created) == 0 {
				return errors.New("no parts duplicated")
			}
			if err := a.save(args[0], f, s); err != nil {
				return err
			}
			rows := make([]partRow, 0, len(created))
			for _, id := range created {
				p, _ := s.Part(id)
				rows = append(rows, rowOf(s.State(), p))
			}
			return a.printIDs(cmd, "Duplicated", rows)
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file> <part>",
		Short: "Remove a part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !s.RemovePart(part.ID(args[1])) {
				return fmt.Errorf("cannot remove %s", args[1])
			}
			if err := a.save(args[0], f, s); err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd, map[string]string{"removed": args[1]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[1])
			return nil
		},
	}
}
