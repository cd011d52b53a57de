package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/session"
	"github.com/heritagepubs/pubsync/internal/stats"
)

var (
	ingestFile        string
	ingestMode        string
	ingestInteractive bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reconcile a scraped JSON batch against the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mode, err := session.ParseMode(ingestMode)
		if err != nil {
			return err
		}

		records, err := readBatch(ingestFile)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		logPath, logFile, err := openAuditLog(cfg.Ingest.LogDir)
		if err != nil {
			return err
		}
		defer logFile.Close()

		var disamb session.Disambiguator
		if ingestInteractive {
			disamb = &session.Console{In: os.Stdin, Out: os.Stdout}
		}

		sess := session.New(st, cfg.Resolver, mode, disamb, session.NewAudit(logFile))
		report, runErr := sess.Run(ctx, records)
		if report == nil {
			return runErr
		}

		fmt.Printf("created=%d updated=%d unchanged=%d skipped=%d errored=%d warnings=%d\n",
			report.Created, report.Updated, report.Unchanged,
			report.Skipped, report.Errored, report.Warnings)
		fmt.Println(stats.RenderReport(report.Before, report.After))

		zap.L().Info("ingest complete",
			zap.String("file", ingestFile),
			zap.String("mode", string(mode)),
			zap.String("audit_log", logPath),
			zap.Int("records", len(records)),
		)
		return runErr
	},
}

// readBatch parses a scraper-produced JSON batch file.
func readBatch(path string) ([]model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch %s", path)
	}
	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "parse batch %s", path)
	}
	return records, nil
}

// openAuditLog creates the timestamped audit log file for this run.
func openAuditLog(dir string) (string, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, eris.Wrapf(err, "create log dir %s", dir)
	}
	name := fmt.Sprintf("pubsync_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", nil, eris.Wrapf(err, "create audit log %s", path)
	}
	return path, f, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to scraped JSON batch (required)")
	ingestCmd.Flags().StringVar(&ingestMode, "mode", "update", "operating mode: update or fresh_import")
	ingestCmd.Flags().BoolVar(&ingestInteractive, "interactive", false, "prompt for ambiguous matches instead of skipping")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
