package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"assetgraph/internal/domain"
)

func newClassCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Inspect and maintain the class hierarchy",
	}
	cmd.AddCommand(newClassGetCommand(opts))
	cmd.AddCommand(newClassListCommand(opts))
	cmd.AddCommand(newClassSubclassesCommand(opts))
	cmd.AddCommand(newClassCreateCommand(opts))
	cmd.AddCommand(newClassSetCommand(opts))
	cmd.AddCommand(newClassDeleteCommand(opts))
	return cmd
}

func newClassGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get CLASS",
		Short: "Show a class and its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				class, err := a.meta.GetClass(ctx, args[0])
				if err != nil {
					return err
				}
				attrs, err := a.meta.ListAttributes(ctx, class.ID)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				printKeyValues(w,
					"Name", class.Name,
					"ID", class.ID,
					"Parent", class.ParentName,
					"Display name", class.DisplayName,
					"Abstract", flag(class.Abstract),
					"Countable", flag(class.Countable),
					"Custom", flag(class.Custom),
				)
				fmt.Fprintln(w)
				printAttributes(w, attrs)
				return nil
			})
		},
	}
}

func newClassListCommand(opts *rootOptions) *cobra.Command {
	var listTypes bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every class breadth-first from the root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				printClasses(cmd.OutOrStdout(), a.meta.ListClasses(ctx, listTypes))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&listTypes, "list-types", false, "include list types")
	return cmd
}

func newClassSubclassesCommand(opts *rootOptions) *cobra.Command {
	var includeAbstract, includeSelf bool

	cmd := &cobra.Command{
		Use:   "subclasses CLASS",
		Short: "List the subclasses of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				classes, err := a.meta.GetSubClasses(ctx, args[0], includeAbstract, includeSelf)
				if err != nil {
					return err
				}
				printClasses(cmd.OutOrStdout(), classes)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeAbstract, "abstract", false, "include abstract subclasses")
	cmd.Flags().BoolVar(&includeSelf, "self", false, "include the class itself")
	return cmd
}

func newClassCreateCommand(opts *rootOptions) *cobra.Command {
	var (
		parent, displayName, description string
		abstract, uncountable            bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				class := domain.NewClass(args[0], parent)
				class.DisplayName = displayName
				class.Description = description
				class.Abstract = abstract
				class.Countable = !uncountable

				id, err := a.meta.CreateClass(ctx, class)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "created class %s (%s)", args[0], id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", domain.InventoryObjectClass, "parent class")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().BoolVar(&abstract, "abstract", false, "create an abstract class")
	cmd.Flags().BoolVar(&uncountable, "uncountable", false, "instances are not counted")
	return cmd
}

func newClassSetCommand(opts *rootOptions) *cobra.Command {
	var (
		update   domain.ClassUpdate
		parent   string
		display  string
		desc     string
		abstract bool
	)

	cmd := &cobra.Command{
		Use:   "set CLASS",
		Short: "Change class properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if flags.Changed("parent") {
				update.ParentName = &parent
			}
			if flags.Changed("display-name") {
				update.DisplayName = &display
			}
			if flags.Changed("description") {
				update.Description = &desc
			}
			if flags.Changed("abstract") {
				update.Abstract = &abstract
			}
			return withApp(ctx, opts, func(a *app) error {
				change, err := a.meta.SetClassProperties(ctx, args[0], update)
				if err != nil {
					return err
				}
				printChange(cmd, args[0], change)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "move the class under another parent")
	cmd.Flags().StringVar(&display, "display-name", "", "display name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().BoolVar(&abstract, "abstract", false, "mark the class abstract")
	return cmd
}

func newClassDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CLASS",
		Short: "Delete a class without subclasses or instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				if err := a.meta.DeleteClass(ctx, args[0]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "deleted class %s", args[0])
				return nil
			})
		},
	}
}

func printChange(cmd *cobra.Command, subject string, change *domain.ChangeDescriptor) {
	w := cmd.OutOrStdout()
	if change == nil || change.Empty() {
		dimColor.Fprintf(w, "%s unchanged\n", subject)
		return
	}
	printSuccess(w, "updated %s: %s", subject, strings.TrimSpace(change.String()))
}
