package main

import (
	"github.com/spf13/cobra"

	"assetgraph/internal/domain"
)

func newAttributeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attribute",
		Aliases: []string{"attr"},
		Short:   "Maintain class attributes",
	}
	cmd.AddCommand(newAttributeListCommand(opts))
	cmd.AddCommand(newAttributeCreateCommand(opts))
	cmd.AddCommand(newAttributeSetCommand(opts))
	cmd.AddCommand(newAttributeDeleteCommand(opts))
	return cmd
}

func newAttributeListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list CLASS",
		Short: "List the attributes of a class, inherited ones first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				attrs, err := a.meta.ListAttributes(ctx, args[0])
				if err != nil {
					return err
				}
				printAttributes(cmd.OutOrStdout(), attrs)
				return nil
			})
		},
	}
}

func newAttributeCreateCommand(opts *rootOptions) *cobra.Command {
	var (
		mapping, semanticType, displayName string
		mandatory, unique, readOnly        bool
	)

	cmd := &cobra.Command{
		Use:   "create CLASS NAME",
		Short: "Add an attribute to a class",
		Long: `Add an attribute to a class. --mapping is one of Primitive, Date, Timestamp,
ManyToOne, ManyToMany or Binary; relationship mappings take the list type as
--type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := domain.ParseMappingKind(mapping)
			if err != nil {
				return err
			}
			attr := domain.NewAttribute(args[1], kind, semanticType)
			attr.DisplayName = displayName
			attr.Mandatory = mandatory
			attr.Unique = unique
			attr.ReadOnly = readOnly

			return withApp(ctx, opts, func(a *app) error {
				id, err := a.meta.CreateAttribute(ctx, args[0], attr)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "created attribute %s.%s (%s)", args[0], args[1], id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&mapping, "mapping", "m", "Primitive", "mapping kind")
	cmd.Flags().StringVarP(&semanticType, "type", "t", "", "semantic type or list type")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().BoolVar(&mandatory, "mandatory", false, "every instance must carry a value")
	cmd.Flags().BoolVar(&unique, "unique", false, "values are unique")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "value can only be set at creation")
	return cmd
}

func newAttributeSetCommand(opts *rootOptions) *cobra.Command {
	var (
		newName, displayName, description, semanticType string
		mandatory, unique, readOnly, visible            bool
		order                                           int
	)

	cmd := &cobra.Command{
		Use:   "set CLASS ATTRIBUTE",
		Short: "Change attribute properties",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			update := domain.AttributeUpdate{Name: args[1]}
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.NewName = &newName
			}
			if flags.Changed("display-name") {
				update.DisplayName = &displayName
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("type") {
				update.Type = &semanticType
			}
			if flags.Changed("mandatory") {
				update.Mandatory = &mandatory
			}
			if flags.Changed("unique") {
				update.Unique = &unique
			}
			if flags.Changed("read-only") {
				update.ReadOnly = &readOnly
			}
			if flags.Changed("visible") {
				update.Visible = &visible
			}
			if flags.Changed("order") {
				update.Order = &order
			}

			return withApp(ctx, opts, func(a *app) error {
				change, err := a.meta.SetAttributeProperties(ctx, args[0], update)
				if err != nil {
					return err
				}
				printChange(cmd, args[0]+"."+args[1], change)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&newName, "name", "", "rename the attribute")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVarP(&semanticType, "type", "t", "", "semantic type or list type")
	cmd.Flags().BoolVar(&mandatory, "mandatory", false, "every instance must carry a value")
	cmd.Flags().BoolVar(&unique, "unique", false, "values are unique")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "value can only be set at creation")
	cmd.Flags().BoolVar(&visible, "visible", true, "show the attribute")
	cmd.Flags().IntVar(&order, "order", 0, "display order")
	return cmd
}

func newAttributeDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CLASS ATTRIBUTE",
		Short: "Delete an attribute and its stored values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				if err := a.meta.DeleteAttribute(ctx, args[0], args[1]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "deleted attribute %s.%s", args[0], args[1])
				return nil
			})
		},
	}
}
