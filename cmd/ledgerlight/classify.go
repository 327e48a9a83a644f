package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlight/ledgerlight/internal/cli"
	"github.com/ledgerlight/ledgerlight/internal/engine"
	"github.com/ledgerlight/ledgerlight/internal/model"
)

func classifyCmd() *cobra.Command {
	var (
		currency string
		noReview bool
	)

	cmd := &cobra.Command{
		Use:   "classify <statement>",
		Short: "Classify one expense statement",
		Long: `Classify a free-text expense statement like "Coffee at Starbucks for $5.50".

Confident results commit directly. Uncertain ones open a confirmation
session and drop you into the interactive review unless --no-review is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, classifier, err := initEngine(cfg, store)
			if err != nil {
				return err
			}
			defer eng.Close()
			defer func() { _ = classifier.Close() }()

			input := engine.ClassifyInput{Description: args[0]}
			if currency != "" {
				parsed, err := model.ParseCurrency(currency)
				if err != nil {
					return err
				}
				input.Currency = parsed
			}

			result, err := eng.Classify(ctx, input)
			if err != nil {
				if errors.Is(err, engine.ErrNoCategories) {
					fmt.Println(cli.FormatError("No categories configured. Run 'ledgerlight categories seed' first."))
					return nil
				}
				return err
			}

			switch result.Outcome {
			case engine.OutcomeCommitted:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Committed as %s (%s %s, confidence %.0f%%)",
					result.Candidate.Category,
					result.Expense.Amount.String(),
					result.Expense.Currency,
					result.Expense.Confidence*100)))
			case engine.OutcomePending:
				fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Needs review: %s (confidence %.0f%%)",
					result.Candidate.Category, result.Candidate.Confidence*100)))
				if !noReview {
					return cli.RunReview(eng)
				}
				// Without a reviewer the session cannot outlive the process.
				if _, err := eng.ResolveSession(ctx, result.SessionID, engine.Resolution{Confirm: false}); err != nil {
					return err
				}
				fmt.Println(cli.SubtleStyle.Render("Discarded without review (--no-review)."))
			case engine.OutcomeRejected:
				fmt.Println(cli.FormatError("Rejected: " + result.Reason))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "currency code for the expense (default from config)")
	cmd.Flags().BoolVar(&noReview, "no-review", false, "discard uncertain results instead of reviewing interactively")
	return cmd
}
