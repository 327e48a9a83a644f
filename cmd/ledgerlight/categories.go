package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerlight/ledgerlight/internal/cli"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

// seedCategories is the starter set installed by 'categories seed'.
var seedCategories = []model.Category{
	{Name: "Food & Dining", Description: "Restaurants, cafes, groceries"},
	{Name: "Travel", Description: "Flights, hotels, rideshares, transit"},
	{Name: "Entertainment", Description: "Streaming, events, games"},
	{Name: "Shopping", Description: "Retail and online purchases"},
	{Name: "Utilities", Description: "Power, water, internet, phone"},
	{Name: "Health", Description: "Medical, pharmacy, fitness"},
	{Name: "Other", Description: "Anything that fits nowhere else"},
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long:  `List, add, update, and delete the categories statements are classified into.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(seedCategoriesCmd())

	return cmd
}

// withStorage runs fn against migrated storage, handling setup and teardown.
func withStorage(ctx context.Context, fn func(store storage.Storage) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				categories, err := store.ListCategories(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list categories: %w", err)
				}
				if len(categories) == 0 {
					fmt.Println(cli.SubtleStyle.Render("No categories found. Use 'ledgerlight categories seed' to install the starter set."))
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				defer func() { _ = w.Flush() }()
				fmt.Fprintln(w, "NAME\tDESCRIPTION\tACTIVE")
				for _, category := range categories {
					active := "yes"
					if !category.IsActive {
						active = "no"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", category.Name, category.Description, active)
				}
				return nil
			})
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				category := &model.Category{
					ID:          uuid.NewString(),
					Name:        args[0],
					Description: description,
					IsActive:    true,
					CreatedAt:   time.Now().UTC(),
				}
				if err := store.AddCategory(cmd.Context(), category); err != nil {
					return fmt.Errorf("failed to add category: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added category %q", category.Name)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "what belongs in this category")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a category",
		Long:  `Delete a category by name. Fails while any expense still references it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				category, err := store.GetCategoryByName(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := store.DeleteCategory(cmd.Context(), category.ID); err != nil {
					return fmt.Errorf("failed to delete category: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted category %q", category.Name)))
				return nil
			})
		},
	}
}

func seedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the starter category set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				added := 0
				for _, seed := range seedCategories {
					if _, err := store.GetCategoryByName(cmd.Context(), seed.Name); err == nil {
						continue
					}
					category := seed
					category.ID = uuid.NewString()
					category.IsActive = true
					category.CreatedAt = time.Now().UTC()
					if err := store.AddCategory(cmd.Context(), &category); err != nil {
						return fmt.Errorf("failed to seed category %q: %w", category.Name, err)
					}
					added++
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Seeded %d categories", added)))
				return nil
			})
		},
	}
}
