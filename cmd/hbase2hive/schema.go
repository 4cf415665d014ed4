package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

func newValidateSchemaCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-schema [file]",
		Short: "Validate a table definition and print its layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := flags.schemaFile
			if len(args) == 1 {
				file = args[0]
			}
			if file == "" {
				return fmt.Errorf("a table definition is required (argument or --schema)")
			}
			table, err := schema.LoadFile(file)
			if err != nil {
				return err
			}
			if _, err := recon.FromTable(table); err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func printTable(out io.Writer, t *schema.Table) {
	fmt.Fprintf(out, "Table: %s\n\n", t.Name)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tTARGET\tDEFAULT")
	for _, c := range t.Catalog.All() {
		def := "-"
		if v, ok := c.DefaultValue(); ok {
			def = v
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c, c.DataType(), c.TargetName(), def)
	}
	w.Flush()

	fmt.Fprintln(out, "\nRow key:")
	for _, f := range t.RowKey.Fields() {
		start, end := f.Bits()
		switch {
		case f.IsLiteral():
			fmt.Fprintf(out, "  %-16s literal %q\n", f.Name(), f.LiteralValue())
		case f.IsHashed():
			fmt.Fprintf(out, "  %-16s hashed\n", f.Name())
		default:
			fmt.Fprintf(out, "  %-16s value bits [%d,%d)\n", f.Name(), start, end)
		}
	}
	if t.RowKey.IsHashed() {
		fmt.Fprintf(out, "  hash: %s, %d bytes\n", t.RowKey.Hasher().Name(), t.RowKey.HashSizeBytes())
	}

	if len(t.ReconColumns) > 0 {
		fmt.Fprintln(out, "\nRecon:")
		for _, rc := range t.ReconColumns {
			fmt.Fprintf(out, "  %-16s %s\n", rc.Column, strings.Join(rc.Operations, ", "))
		}
	}
}

func newRowKeyCmd(flags *globalFlags) *cobra.Command {
	var decode string

	cmd := &cobra.Command{
		Use:   "rowkey [field=value ...]",
		Short: "Build or split a composite row key",
		Long: `Build the composite row key of the table named by --schema from field=value
pairs and print it as hex, or split a hex key back into its fields with --decode.

Example:
  hbase2hive rowkey --schema invoices.yaml gstin=27AAAAA0000A1Z5 period=202401
  hbase2hive rowkey --schema invoices.yaml --decode 3a9f...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.schemaFile == "" {
				return fmt.Errorf("--schema is required")
			}
			table, err := schema.LoadFile(flags.schemaFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if decode != "" {
				key, err := hex.DecodeString(decode)
				if err != nil {
					return fmt.Errorf("invalid hex key: %w", err)
				}
				fields, err := table.RowKey.Split(key)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(fields))
				for name := range fields {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "%s=%s\n", name, fields[name])
				}
				return nil
			}

			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			key, err := table.RowKey.Build(values)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hex.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().StringVar(&decode, "decode", "", "Hex row key to split into fields")
	return cmd
}

// parseAssignments turns name=value arguments into a map.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", arg)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("field %s given more than once", name)
		}
		values[name] = value
	}
	return values, nil
}
