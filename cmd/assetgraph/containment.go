package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"assetgraph/internal/domain"
)

func newContainmentCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "containment",
		Short: "Inspect and maintain containment rules",
	}
	cmd.AddCommand(newContainmentChildrenCommand(opts))
	cmd.AddCommand(newContainmentAddCommand(opts))
	cmd.AddCommand(newContainmentRemoveCommand(opts))
	cmd.AddCommand(newContainmentUpstreamCommand(opts))
	cmd.AddCommand(newContainmentCheckCommand(opts))
	return cmd
}

func newContainmentChildrenCommand(opts *rootOptions) *cobra.Command {
	var special, direct bool

	cmd := &cobra.Command{
		Use:   "children CLASS",
		Short: "List the classes whose instances can be placed inside CLASS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				var (
					classes []*domain.Class
					err     error
				)
				switch {
				case special && direct:
					classes, err = a.meta.GetPossibleSpecialChildrenNoRecursive(ctx, args[0])
				case special:
					classes, err = a.meta.GetPossibleSpecialChildren(ctx, args[0])
				case direct:
					classes, err = a.meta.GetPossibleChildrenNoRecursive(ctx, args[0])
				default:
					classes, err = a.meta.GetPossibleChildren(ctx, args[0])
				}
				if err != nil {
					return err
				}
				printClasses(cmd.OutOrStdout(), classes)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&special, "special", false, "use the special rule set")
	cmd.Flags().BoolVar(&direct, "direct", false, "list the rules as stored, without expanding abstract classes")
	return cmd
}

func newContainmentAddCommand(opts *rootOptions) *cobra.Command {
	var special bool

	cmd := &cobra.Command{
		Use:   "add PARENT CHILD...",
		Short: "Allow instances of CHILD classes inside instances of PARENT",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				add := a.meta.AddPossibleChildren
				if special {
					add = a.meta.AddPossibleSpecialChildren
				}
				if err := add(ctx, args[0], args[1:]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "%s can contain %s", args[0], strings.Join(args[1:], ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&special, "special", false, "use the special rule set")
	return cmd
}

func newContainmentRemoveCommand(opts *rootOptions) *cobra.Command {
	var special bool

	cmd := &cobra.Command{
		Use:   "remove PARENT CHILD...",
		Short: "Remove containment rules",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				remove := a.meta.RemovePossibleChildren
				if special {
					remove = a.meta.RemovePossibleSpecialChildren
				}
				if err := remove(ctx, args[0], args[1:]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "removed %s from %s", strings.Join(args[1:], ", "), args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&special, "special", false, "use the special rule set")
	return cmd
}

func newContainmentUpstreamCommand(opts *rootOptions) *cobra.Command {
	var special, recursive bool

	cmd := &cobra.Command{
		Use:   "upstream CLASS",
		Short: "List the classes whose instances may contain CLASS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				upstream := a.meta.GetUpstreamContainmentHierarchy
				if special {
					upstream = a.meta.GetUpstreamSpecialContainmentHierarchy
				}
				classes, err := upstream(ctx, args[0], recursive)
				if err != nil {
					return err
				}
				printClasses(cmd.OutOrStdout(), classes)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&special, "special", false, "use the special rule set")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "follow the hierarchy up to the root")
	return cmd
}

func newContainmentCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check PARENT CHILD",
		Short: "Tell whether instances of CHILD may be placed inside instances of PARENT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				ok, err := a.meta.CanContain(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if ok {
					printSuccess(cmd.OutOrStdout(), "%s can contain %s", args[0], args[1])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s can not contain %s\n", args[0], args[1])
				}
				return nil
			})
		},
	}
}
