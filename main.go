package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fazecat/gapscreener/Internal/datafeed"
	"github.com/fazecat/gapscreener/Internal/reporting"
	"github.com/fazecat/gapscreener/Internal/scanners"
	"github.com/fazecat/gapscreener/Internal/screener"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	root := &cobra.Command{
		Use:           "gapscreener",
		Short:         "Daily pre-market equity screener",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), scannersCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath string
	var asOfRaw string
	var csvPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen the configured universe and print the ranked table",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var asOf time.Time
			if asOfRaw != "" {
				asOf, err = time.Parse(time.RFC3339, asOfRaw)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q, expected RFC3339: %w", asOfRaw, err)
				}
			}

			factory, err := datafeed.ResolveFactory(cfg.Data.Provider)
			if err != nil {
				return err
			}
			provider, err := factory(cfg.Data)
			if err != nil {
				return err
			}

			engine := screener.NewEngine(cfg, provider)
			results, err := engine.Run(cmd.Context(), asOf)
			if err != nil {
				return err
			}

			rows := reporting.SummarizeAll(results)
			fmt.Println(reporting.RenderTable(rows))

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("creating csv report: %w", err)
				}
				defer f.Close()
				if err := reporting.WriteCSV(f, rows); err != nil {
					return fmt.Errorf("writing csv report: %w", err)
				}
				log.Info().Str("path", csvPath).Msg("csv report written")
			}

			for _, result := range results {
				if result.IsActionable() {
					return nil
				}
			}
			// Exit nonzero when nothing passed so cron wrappers can tell
			// an empty morning apart from a productive one.
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "Override timestamp (RFC3339, UTC). Defaults to now")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the report to this CSV file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func scannersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scanners",
		Short: "List the scanner catalog grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := scanners.BuildScannerDefinitions()
			if err := scanners.ValidateScanners(catalog, scanners.BaselineRegistry()); err != nil {
				return err
			}

			byGroup := make(map[string][]scanners.ScannerDefinition)
			for _, def := range catalog {
				byGroup[def.Group] = append(byGroup[def.Group], def)
			}
			groups := make([]string, 0, len(byGroup))
			for group := range byGroup {
				groups = append(groups, group)
			}
			sort.Strings(groups)

			for _, group := range groups {
				defs := byGroup[group]
				sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
				fmt.Printf("%s\n", group)
				for _, def := range defs {
					fmt.Printf("  %s\n", def.Name)
					for _, baseline := range def.Baselines {
						fmt.Printf("    - %s: %s\n", baseline.Key, baseline.Description)
					}
					if def.Notes != "" {
						fmt.Printf("    note: %s\n", def.Notes)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}
}
