package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerlight/ledgerlight/internal/cli"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Browse committed expenses",
	}

	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(deleteExpenseCmd())

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		category  string
		status    string
		minAmount string
		maxAmount string
		since     string
		until     string
		contains  string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally filtered",
		Long: `List stored expenses. All filters compose: category, status, amount
range, date range, and description substring.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				filter := storage.ExpenseFilter{
					DescriptionContains: contains,
					Limit:               limit,
					Offset:              offset,
				}

				if category != "" {
					cat, err := store.GetCategoryByName(cmd.Context(), category)
					if err != nil {
						return err
					}
					filter.CategoryID = cat.ID
				}
				if status != "" {
					parsed := model.ExpenseStatus(status)
					if !parsed.Valid() {
						return fmt.Errorf("unknown status %q", status)
					}
					filter.Status = parsed
				}
				var err error
				if filter.MinAmount, err = parseAmountFlag(minAmount); err != nil {
					return err
				}
				if filter.MaxAmount, err = parseAmountFlag(maxAmount); err != nil {
					return err
				}
				if filter.StartDate, err = parseDateFlag(since); err != nil {
					return err
				}
				if filter.EndDate, err = parseDateFlag(until); err != nil {
					return err
				}

				expenses, err := store.SearchExpenses(cmd.Context(), filter)
				if err != nil {
					return fmt.Errorf("failed to search expenses: %w", err)
				}
				if len(expenses) == 0 {
					fmt.Println(cli.SubtleStyle.Render("No matching expenses."))
					return nil
				}

				categories, err := store.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				names := make(map[string]string, len(categories))
				for _, cat := range categories {
					names[cat.ID] = cat.Name
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				defer func() { _ = w.Flush() }()
				fmt.Fprintln(w, "DATE\tDESCRIPTION\tCATEGORY\tAMOUNT\tSTATUS\tID")
				for _, expense := range expenses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
						expense.CreatedAt.Format("2006-01-02"),
						expense.Description,
						names[expense.CategoryID],
						expense.Amount.String(),
						expense.Currency,
						expense.Status,
						expense.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, confirmed, rejected)")
	cmd.Flags().StringVar(&minAmount, "min", "", "minimum amount")
	cmd.Flags().StringVar(&maxAmount, "max", "", "maximum amount")
	cmd.Flags().StringVar(&since, "since", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "latest date, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&contains, "contains", "", "description substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store storage.Storage) error {
				if err := store.DeleteExpense(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete expense: %w", err)
				}
				fmt.Println(cli.FormatSuccess("Deleted expense " + args[0]))
				return nil
			})
		},
	}
}

func parseAmountFlag(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return &amount, nil
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return &date, nil
}
