package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/logger"
	"github.com/simaogato/payswarm-backend/internal/money"
	"github.com/simaogato/payswarm-backend/internal/usecase/transfer"
)

// payeeFile is the YAML document read by every command
type payeeFile struct {
	Currency    string             `yaml:"currency"`
	Source      string             `yaml:"source"`
	Description string             `yaml:"description"`
	Payees      []domain.Payee     `yaml:"payees"`
	Rules       []domain.PayeeRule `yaml:"rules"`
}

func readPayeeFile(path string) (*payeeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f payeeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &f, nil
}

func commandLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop(), nil
	}

	return logger.New("debug", true)
}

func transfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers [file]",
		Short: "Resolve a payee file into a transaction with its transfers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readPayeeFile(args[0])
			if err != nil {
				return err
			}

			scale, _ := cmd.Flags().GetInt32("scale")
			roundingFlag, _ := cmd.Flags().GetString("rounding")
			output, _ := cmd.Flags().GetString("output")

			rounding, err := money.ParseRounding(roundingFlag)
			if err != nil {
				return err
			}
			moneyCtx := money.Context{Scale: scale, Rounding: rounding}
			if err := moneyCtx.Validate(); err != nil {
				return err
			}

			log, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			tx := &domain.Transaction{
				ID:          uuid.New(),
				Description: f.Description,
				Date:        time.Now().UTC(),
				Source:      f.Source,
				Currency:    f.Currency,
			}

			if err := transfer.NewEngine(moneyCtx, log).CreateTransfers(tx, f.Source, f.Payees); err != nil {
				return err
			}

			return writeOutput(cmd, output, tx)
		},
	}

	cmd.Flags().Int32("scale", money.Default.Scale, "Fractional digits amounts are computed with")
	cmd.Flags().String("rounding", string(money.Default.Rounding), "Rounding mode (down, up)")
	cmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")

	return cmd
}

func checkGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-groups [file]",
		Short: "Check that no payee in the file uses a reserved group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readPayeeFile(args[0])
			if err != nil {
				return err
			}

			if err := domain.CheckPayeeGroups(f.Payees); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d payees\n", len(f.Payees))
			return nil
		},
	}
}

func checkRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-rules [file]",
		Short: "Check every payee in the file against the file's payee rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readPayeeFile(args[0])
			if err != nil {
				return err
			}

			rejected := 0
			for i, p := range f.Payees {
				verdict := "accepted"
				if !domain.MatchesAnyPayeeRule(f.Rules, p) {
					verdict = "rejected"
					rejected++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payees[%d] %s: %s\n", i, p.Destination, verdict)
			}

			if rejected > 0 {
				return fmt.Errorf("%d of %d payees rejected by %d rules", rejected, len(f.Payees), len(f.Rules))
			}

			return nil
		},
	}
}

func writeOutput(cmd *cobra.Command, format string, v interface{}) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
