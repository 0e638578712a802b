package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/config"
	"github.com/JakeFAU/seo-auditor/internal/crawler"
	"github.com/JakeFAU/seo-auditor/internal/logging"
	"github.com/JakeFAU/seo-auditor/internal/report"
)

// newAuditCmd creates and configures the 'audit' subcommand, a
// one-shot run that prints a Markdown report.
func newAuditCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Run a single audit and print a Markdown report",
		Long: `Audits one site end to end: crawl, rule analysis, scoring, and
prioritization. The report goes to stdout unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditCommand(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func runAuditCommand(cmd *cobra.Command, rawURL, output string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	rootURL, err := crawler.Normalize(rawURL, "")
	if err != nil {
		return fmt.Errorf("invalid root url: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	rec := audit.Record{
		ID:        uuid.NewString(),
		RootURL:   rootURL,
		Status:    audit.StatusQueued,
		Submitted: time.Now(),
	}
	if err := p.store.CreateAudit(ctx, rec); err != nil {
		return fmt.Errorf("create audit: %w", err)
	}

	result, err := p.auditor.Run(ctx, rec)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return report.NewMarkdownWriter(w).Write(result)
}
