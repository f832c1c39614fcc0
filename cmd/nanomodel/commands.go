package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanomodel/config"
	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/store"
)

// addCommands adds every subcommand
func (cli *CLI) addCommands() {
	cli.addModelsCommand()
	cli.addValidateCommand()
	cli.addCreateCommand()
	cli.addGetCommand()
	cli.addFindCommand()
	cli.addUpdateCommand()
	cli.addUnsetCommand()
	cli.addDeleteCommand()
	cli.addLoadCommand()
}

func (cli *CLI) format() string {
	return cli.viperInst.GetString("format")
}

// withDocument opens a session, finds the document by id and runs fn.
func (cli *CLI) withDocument(cmd *cobra.Command, operation, modelName, id string, fn func(s *session, d *model.Document) error) error {
	s, err := cli.openSession(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	class, err := s.class(operation, modelName)
	if err != nil {
		return err
	}
	d, err := class.FindByID(cmd.Context(), id)
	if err != nil {
		return WrapError(operation, err)
	}
	return fn(s, d)
}

func (cli *CLI) addModelsCommand() {
	cmd := &cobra.Command{
		Use:   "models [model]",
		Short: "List declared models or show one model's schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, _, err := cli.loadDefinitions("list models")
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeOutput(cmd.OutOrStdout(), cli.format(), defs.ModelNames())
			}
			def, ok := defs.Models[args[0]]
			if !ok {
				return NewModelNotFoundError("show model", args[0], defs.ModelNames())
			}
			return writeOutput(cmd.OutOrStdout(), cli.format(), modelSummary(args[0], def))
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func modelSummary(name string, def config.ModelDef) map[string]any {
	collection := def.Collection
	if collection == "" {
		collection = name
	}
	fields := make(map[string]any, len(def.Schema))
	for field, fd := range def.Schema {
		fields[field] = fd
	}
	summary := map[string]any{
		"collection": collection,
		"strict":     def.Strict.String(),
		"fields":     fields,
	}
	if len(def.Schemas) > 0 {
		names := make([]string, 0, len(def.Schemas))
		for alt := range def.Schemas {
			names = append(names, alt)
		}
		sort.Strings(names)
		summary["schemas"] = names
	}
	if len(def.Relationships) > 0 {
		rels := make(map[string]any, len(def.Relationships))
		for rel, rd := range def.Relationships {
			rels[rel] = fmt.Sprintf("%s %s", rd.Type, rd.Model)
		}
		summary["relationships"] = rels
	}
	return summary
}

func (cli *CLI) addValidateCommand() {
	cmd := &cobra.Command{
		Use:   "validate <model> <json>",
		Short: "Validate a document without saving it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "validate document"
			data, err := parseObject(op, "document", args[1])
			if err != nil {
				return err
			}
			s, err := cli.openSession(op)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			class, err := s.class(op, args[0])
			if err != nil {
				return err
			}
			d, err := class.New(data)
			if err != nil {
				return WrapError(op, err)
			}
			validated, err := d.Validate()
			if err != nil {
				return WrapError(op, err)
			}
			return writeOutput(cmd.OutOrStdout(), cli.format(), validated)
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addCreateCommand() {
	cmd := &cobra.Command{
		Use:   "create <model> <json>",
		Short: "Insert a new document",
		Long: `Insert a new document. An "_id" in the document is used as the identifier
of the new record.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "create document"
			data, err := parseObject(op, "document", args[1])
			if err != nil {
				return err
			}
			s, err := cli.openSession(op)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			class, err := s.class(op, args[0])
			if err != nil {
				return err
			}
			d, err := class.New(data)
			if err != nil {
				return WrapError(op, err)
			}
			if _, err := d.Save(cmd.Context()); err != nil {
				return WrapError(op, err)
			}
			return writeOutput(cmd.OutOrStdout(), cli.format(), d)
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addGetCommand() {
	cmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withDocument(cmd, "get document", args[0], args[1], func(_ *session, d *model.Document) error {
				return writeOutput(cmd.OutOrStdout(), cli.format(), d)
			})
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addFindCommand() {
	cmd := &cobra.Command{
		Use:   "find <model> [query]",
		Short: "List documents matching a JSON query",
		Long: `List documents matching a JSON query. Query values are literals or operator
objects: $eq $ne $in $nin $gt $gte $lt $lte $exists, combined with $and / $or.

Examples:
  nanomodel find Book '{"year": {"$gte": 1970}}' --sort -year --limit 5
  nanomodel find Author --fields name,born --count`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "find documents"
			q := store.Query{}
			if len(args) == 2 {
				parsed, err := parseObject(op, "query", args[1])
				if err != nil {
					return err
				}
				q = parsed
			}
			opts, err := findOptions(cmd)
			if err != nil {
				return err
			}

			s, err := cli.openSession(op)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			class, err := s.class(op, args[0])
			if err != nil {
				return err
			}
			if count, _ := cmd.Flags().GetBool("count"); count {
				n, err := class.Count(cmd.Context(), q)
				if err != nil {
					return WrapError(op, err)
				}
				return writeOutput(cmd.OutOrStdout(), cli.format(), map[string]any{"count": n})
			}
			docs, err := class.Find(cmd.Context(), q, opts)
			if err != nil {
				return WrapError(op, err)
			}
			return writeOutput(cmd.OutOrStdout(), cli.format(), docs)
		},
	}
	cmd.Flags().StringSlice("sort", nil, "Sort fields; prefix with - for descending")
	cmd.Flags().Int("limit", 0, "Maximum number of results")
	cmd.Flags().Int("skip", 0, "Number of results to skip")
	cmd.Flags().StringSlice("fields", nil, "Fields to include; prefix with - to exclude")
	cmd.Flags().Bool("count", false, "Print the number of matches only")
	cli.rootCmd.AddCommand(cmd)
}

func findOptions(cmd *cobra.Command) (store.FindOptions, error) {
	var opts store.FindOptions
	sortFields, _ := cmd.Flags().GetStringSlice("sort")
	for _, f := range sortFields {
		desc := strings.HasPrefix(f, "-")
		opts.Sort = append(opts.Sort, store.SortField{Field: strings.TrimPrefix(f, "-"), Descending: desc})
	}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Skip, _ = cmd.Flags().GetInt("skip")
	if opts.Limit < 0 || opts.Skip < 0 {
		return opts, &CLIError{Operation: "find documents", Cause: "--limit and --skip must not be negative"}
	}
	fields, _ := cmd.Flags().GetStringSlice("fields")
	if len(fields) > 0 {
		opts.Projection = make(map[string]bool, len(fields))
		for _, f := range fields {
			opts.Projection[strings.TrimPrefix(f, "-")] = !strings.HasPrefix(f, "-")
		}
	}
	return opts, nil
}

func (cli *CLI) addUpdateCommand() {
	cmd := &cobra.Command{
		Use:   "update <model> <id> <json>",
		Short: "Change fields of a document",
		Long: `Change fields of a document. Keys may be dotted paths into nested objects; a
null value removes the field. Only changed fields are validated and written.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "update document"
			changes, err := parseObject(op, "changes", args[2])
			if err != nil {
				return err
			}
			return cli.withDocument(cmd, op, args[0], args[1], func(_ *session, d *model.Document) error {
				keys := make([]string, 0, len(changes))
				for key := range changes {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					if changes[key] == nil {
						d.Remove(key)
						continue
					}
					d.Set(key, changes[key])
				}
				res, err := d.Save(cmd.Context())
				if err != nil {
					return WrapError(op, err)
				}
				cli.logger.Info("document saved", "model", args[0], "id", d.ID(), "result", res.String())
				return writeOutput(cmd.OutOrStdout(), cli.format(), d)
			})
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addUnsetCommand() {
	cmd := &cobra.Command{
		Use:   "unset <model> <id> <field>...",
		Short: "Remove fields from a stored document without validation",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "unset fields"
			return cli.withDocument(cmd, op, args[0], args[1], func(_ *session, d *model.Document) error {
				if err := d.Unset(cmd.Context(), args[2:]...); err != nil {
					return WrapError(op, err)
				}
				return writeOutput(cmd.OutOrStdout(), cli.format(), d)
			})
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addDeleteCommand() {
	cmd := &cobra.Command{
		Use:   "delete <model> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "delete document"
			return cli.withDocument(cmd, op, args[0], args[1], func(_ *session, d *model.Document) error {
				if err := d.Delete(cmd.Context()); err != nil {
					return WrapError(op, err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %v\n", args[0], d.ID())
				return err
			})
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addLoadCommand() {
	cmd := &cobra.Command{
		Use:   "load <model> <id> <relationship>...",
		Short: "Show a document with related documents loaded",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "load relationship"
			return cli.withDocument(cmd, op, args[0], args[1], func(_ *session, d *model.Document) error {
				for _, name := range args[2:] {
					if _, err := d.Load(cmd.Context(), name); err != nil {
						return WrapError(op, err)
					}
				}
				return writeOutput(cmd.OutOrStdout(), cli.format(), d)
			})
		},
	}
	cli.rootCmd.AddCommand(cmd)
}
