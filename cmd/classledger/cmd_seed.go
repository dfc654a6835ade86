package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/services/deductions"
	"github.com/R3E-Network/classledger/internal/config"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert reference data",
}

var seedPresetFile string

var seedDeductionsCmd = &cobra.Command{
	Use:   "deductions",
	Short: "Insert the deduction rule presets when no rule exists",
	Long: `Insert deduction rule presets. Without --file the DEDUCTION_PRESETS
file is used, and without that the built-in presets. Nothing is inserted when
the deduction_configs table already has rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			path := seedPresetFile
			if strings.TrimSpace(path) == "" {
				cfg, _, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.DeductionPresets
			}
			presets, err := config.LoadDeductionPresetsOrDefault(path)
			if err != nil {
				return err
			}
			n, err := a.Deductions.Seed(ctx, presetInputs(presets))
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "deduction rules already configured; nothing inserted")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d deduction rules\n", n)
			return nil
		})
	},
}

func presetInputs(presets []config.DeductionPreset) []deductions.ConfigInput {
	out := make([]deductions.ConfigInput, 0, len(presets))
	for _, p := range presets {
		value := decimal.NewFromFloat(p.Value)
		out = append(out, deductions.ConfigInput{
			Name:        p.Name,
			Type:        deduction.Type(p.Type),
			Value:       &value,
			Description: p.Description,
			Frequency:   deduction.Frequency(p.Frequency),
		})
	}
	return out
}

func init() {
	seedDeductionsCmd.Flags().StringVar(&seedPresetFile, "file", "", "YAML preset file")
	seedCmd.AddCommand(seedDeductionsCmd)
}
