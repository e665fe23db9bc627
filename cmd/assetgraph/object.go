package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"assetgraph/internal/domain"
	"assetgraph/internal/service"
)

func newObjectCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "object",
		Aliases: []string{"obj"},
		Short:   "Create and inspect inventory objects",
	}
	cmd.AddCommand(newObjectCreateCommand(opts))
	cmd.AddCommand(newObjectItemCommand(opts))
	cmd.AddCommand(newObjectGetCommand(opts))
	cmd.AddCommand(newObjectListCommand(opts))
	cmd.AddCommand(newObjectUpdateCommand(opts))
	cmd.AddCommand(newObjectMoveCommand(opts))
	cmd.AddCommand(newObjectDeleteCommand(opts))
	cmd.AddCommand(newObjectEvaluateCommand(opts))
	return cmd
}

// parseAssignments turns repeated key=value flags into attribute values.
// Repeating a key collects several values for it.
func parseAssignments(assignments []string) (map[string][]string, error) {
	attrs := make(map[string][]string, len(assignments))
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want name=value", a)
		}
		attrs[key] = append(attrs[key], value)
	}
	return attrs, nil
}

func newObjectCreateCommand(opts *rootOptions) *cobra.Command {
	var (
		parent string
		set    []string
	)

	cmd := &cobra.Command{
		Use:   "create CLASS",
		Short: "Create an object inside a parent object",
		Long: `Create an object of CLASS. Without --parent the object is placed at the
top level, which needs a containment rule from RootObject. Attribute values are
given as --set name=value; relationship values are object ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			attrs, err := parseAssignments(set)
			if err != nil {
				return err
			}
			return withApp(ctx, opts, func(a *app) error {
				id, err := a.objects.CreateObject(ctx, args[0], parent, attrs)
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "created %s", args[0])
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent object id")
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "attribute value as name=value (repeatable)")
	return cmd
}

func newObjectItemCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item LISTTYPE NAME",
		Short: "Create a list item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				id, err := a.objects.CreateListItem(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "created %s item %s", args[0], args[1])
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newObjectGetCommand(opts *rootOptions) *cobra.Command {
	var typed bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show an object and its attribute values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				view, err := a.objects.GetObject(ctx, args[0])
				if err != nil {
					return err
				}
				if !typed {
					printObject(cmd.OutOrStdout(), view)
					return nil
				}
				values, err := a.objects.GetObjectTyped(ctx, args[0])
				if err != nil {
					return err
				}
				printTypedObject(cmd.OutOrStdout(), view, values)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&typed, "typed", false, "convert values to their types and show the type")
	return cmd
}

func printTypedObject(w io.Writer, view *service.ObjectView, values map[string]service.TypedValue) {
	printKeyValues(w, "ID", view.Instance.ID, "Class", view.Class.Name)
	fmt.Fprintln(w)

	t := newTable(w, "ATTRIBUTE", "TYPE", "VALUE")
	for _, name := range slices.Sorted(maps.Keys(values)) {
		v := values[name]
		t.addRow(name, fmt.Sprintf("%T", v.Value), v.String())
	}
	t.render()
}

func printObject(w io.Writer, view *service.ObjectView) {
	printKeyValues(w,
		"ID", view.Instance.ID,
		"Class", view.Class.Name,
		"Kind", string(view.Instance.Kind),
		"Parent", view.Instance.ParentID,
	)
	fmt.Fprintln(w)

	t := newTable(w, "ATTRIBUTE", "VALUE")
	for _, name := range slices.Sorted(maps.Keys(view.Attributes)) {
		t.addRow(name, strings.Join(view.Attributes[name], ", "))
	}
	t.render()
}

func newObjectListCommand(opts *rootOptions) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the objects directly inside a parent, or the top-level objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				views, err := a.objects.ListObjects(ctx, parent)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "ID", "CLASS", "NAME")
				for _, v := range views {
					name := ""
					if values := v.Attributes["name"]; len(values) > 0 {
						name = values[0]
					}
					t.addRow(v.Instance.ID, v.Class.Name, name)
				}
				t.render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent object id")
	return cmd
}

func newObjectUpdateCommand(opts *rootOptions) *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace attribute values of an object",
		Long: `Replace attribute values of an object. An empty value (--set name=)
clears the attribute.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			attrs, err := parseAssignments(set)
			if err != nil {
				return err
			}
			for name, values := range attrs {
				if len(values) == 1 && values[0] == "" {
					attrs[name] = nil
				}
			}
			return withApp(ctx, opts, func(a *app) error {
				if err := a.objects.UpdateObject(ctx, args[0], attrs); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "updated %s", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "attribute value as name=value (repeatable)")
	return cmd
}

func newObjectMoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID [PARENT]",
		Short: "Move an object and its subtree under another parent",
		Long:  "Move an object and its subtree under PARENT, or to the top level when PARENT is omitted.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parent := ""
			if len(args) == 2 {
				parent = args[1]
			}
			return withApp(ctx, opts, func(a *app) error {
				if err := a.objects.MoveObject(ctx, args[0], parent); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "moved %s", args[0])
				return nil
			})
		},
	}
}

func newObjectDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an object and everything inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				n, err := a.objects.DeleteObject(ctx, args[0])
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "deleted %d object(s)", n)
				return nil
			})
		},
	}
}

func newObjectEvaluateCommand(opts *rootOptions) *cobra.Command {
	var className string

	cmd := &cobra.Command{
		Use:   "evaluate [ID]",
		Short: "Run the validators against an object or, with --class, a class",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if (len(args) == 1) == (className != "") {
				return fmt.Errorf("give either an object id or --class")
			}
			return withApp(ctx, opts, func(a *app) error {
				var (
					results map[string]domain.TriState
					err     error
				)
				if className != "" {
					results, err = a.objects.EvaluateClass(ctx, className)
				} else {
					results, err = a.objects.Evaluate(ctx, args[0])
				}
				if err != nil {
					return err
				}

				t := newTable(cmd.OutOrStdout(), "VALIDATOR", "RESULT")
				for _, label := range slices.Sorted(maps.Keys(results)) {
					t.addRow(label, results[label].String())
				}
				t.render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&className, "class", "c", "", "evaluate a class instead of an object")
	return cmd
}
