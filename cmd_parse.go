package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/giygas/drugregistry/config"
	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/registryparser"
	"github.com/giygas/drugregistry/validation"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var (
		file       string
		dataset    string
		dataSource string
		report     bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a feed file and print the normalized entities as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Options{
				Console:      cmd.ErrOrStderr(),
				ConsoleLevel: logging.GetConsoleLogLevel(config.EnvDevelopment, "warn", false),
			})

			blob, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			var (
				payload any
				stats   registryparser.ParseStats
			)
			switch dataset {
			case interfaces.DatasetDrugs:
				drugs, s, err := registryparser.ParseDrugs(blob, registryparser.NewNormalizer(dataSource, nil))
				if err != nil {
					return err
				}
				payload, stats = drugs, s
				if report {
					payload = validation.NewDataValidator().ReportDataQuality(drugs)
				}
			case interfaces.DatasetClassifications:
				classes, s, err := registryparser.ParseClassifications(blob)
				if err != nil {
					return err
				}
				payload, stats = classes, s
			default:
				return fmt.Errorf("unknown dataset %q, want %s or %s", dataset, interfaces.DatasetDrugs, interfaces.DatasetClassifications)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "input=%d output=%d dropped=%d\n", stats.InputRows, stats.OutputRows, stats.DroppedRows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "feed file to parse")
	cmd.Flags().StringVarP(&dataset, "dataset", "d", interfaces.DatasetDrugs, "dataset of the feed: drugs or classifications")
	cmd.Flags().StringVar(&dataSource, "source", "rpl", "data source tag stored on every drug")
	cmd.Flags().BoolVar(&report, "report", false, "print the data quality report instead of the drugs")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
