package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgerlight/ledgerlight/internal/cli"
	"github.com/ledgerlight/ledgerlight/internal/engine"
	"github.com/ledgerlight/ledgerlight/internal/model"
)

func importCmd() *cobra.Command {
	var (
		currency string
		noReview bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Classify a file of expense statements",
		Long: `Read expense statements from a file, one per line, and classify each.
Blank lines and lines starting with # are skipped.

Uncertain classifications queue up for a single interactive review pass at
the end of the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			statements, err := readStatements(args[0])
			if err != nil {
				return err
			}
			if len(statements) == 0 {
				fmt.Println(cli.SubtleStyle.Render("Nothing to import."))
				return nil
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

			input := engine.ClassifyInput{}
			if currency != "" {
				parsed, err := model.ParseCurrency(currency)
				if err != nil {
					return err
				}
				input.Currency = parsed
			}

			bar := progressbar.Default(int64(len(statements)), "classifying")
			var committed, pending, rejected, failed int

			for _, statement := range statements {
				input.Description = statement
				result, err := eng.Classify(ctx, input)
				_ = bar.Add(1)
				if err != nil {
					failed++
					fmt.Fprintln(os.Stderr, cli.FormatError(fmt.Sprintf("%q: %v", statement, err)))
					continue
				}
				switch result.Outcome {
				case engine.OutcomeCommitted:
					committed++
				case engine.OutcomePending:
					pending++
				case engine.OutcomeRejected:
					rejected++
				}
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Imported %d statements: %d committed, %d pending review, %d rejected, %d failed",
				len(statements), committed, pending, rejected, failed)))

			if pending == 0 {
				return nil
			}
			if noReview {
				for _, s := range eng.PendingSessions() {
					if _, err := eng.ResolveSession(ctx, s.ID, engine.Resolution{Confirm: false}); err != nil {
						return err
					}
				}
				fmt.Println(cli.SubtleStyle.Render("Pending classifications discarded (--no-review)."))
				return nil
			}
			return cli.RunReview(eng)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "currency code for imported expenses (default from config)")
	cmd.Flags().BoolVar(&noReview, "no-review", false, "discard uncertain results instead of reviewing interactively")
	return cmd
}

// readStatements loads non-empty, non-comment lines from the import file.
func readStatements(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var statements []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		statements = append(statements, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return statements, nil
}
