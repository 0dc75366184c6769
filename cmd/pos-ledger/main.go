// Command pos-ledger exports the order ledger to gzip NDJSON archives and
// audits archives for broken or duplicated orders.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/ledger"
	"github.com/xenking/barista-pos/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

// errAuditFailed makes the process exit non-zero without printing twice.
var errAuditFailed = errors.New("audit found problems")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := &cobra.Command{
		Use:           "pos-ledger",
		Short:         "Export and audit the order ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(exportCmd(), auditCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAuditFailed) {
			slog.Error("pos-ledger failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func exportCmd() *cobra.Command {
	var (
		databaseURL string
		since       string
		until       string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write orders created in [since, until) to a gzip NDJSON archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}
			from, to, err := exportRange(since, until, time.Now())
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), databaseURL, out, from, to)
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	cmd.Flags().StringVar(&since, "since", "", "first UTC day to export, YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&until, "until", "", "UTC day to stop before, YYYY-MM-DD (default: the day after since)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "archive path (default: orders-<since>.ndjson.gz)")
	return cmd
}

// exportRange resolves the export window to whole UTC days.
func exportRange(since, until string, now time.Time) (from, to time.Time, err error) {
	if since == "" {
		from = now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	} else if from, err = time.Parse(dateLayout, since); err != nil {
		return from, to, errors.Wrap(err, "parse --since")
	}
	if until == "" {
		to = from.AddDate(0, 0, 1)
	} else if to, err = time.Parse(dateLayout, until); err != nil {
		return from, to, errors.Wrap(err, "parse --until")
	}
	if !to.After(from) {
		return from, to, errors.Errorf("--until %s must be after --since %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	return from, to, nil
}

func runExport(ctx context.Context, databaseURL, out string, from, to time.Time) error {
	if out == "" {
		out = fmt.Sprintf("orders-%s.ndjson.gz", from.Format(dateLayout))
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create archive")
	}

	slog.Info("exporting orders",
		slog.Time("from", from),
		slog.Time("to", to),
		slog.String("out", out),
	)

	n, err := ledger.Export(ctx, f, postgres.NewOrderRepository(pool), from, to)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "close archive")
	}
	if err != nil {
		_ = os.Remove(out)
		return errors.Wrap(err, "export")
	}

	slog.Info("export completed", slog.Int("orders", n))
	return nil
}

func auditCmd() *cobra.Command {
	var cfg ledger.AuditConfig
	cmd := &cobra.Command{
		Use:   "audit ARCHIVE...",
		Short: "Check archived orders for broken totals, catalog drift and duplicates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := ledger.Audit(cmd.Context(), menu.Default(), args, openFile, cfg)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if !report.OK() {
				return errAuditFailed
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&cfg.ExpectedOrders, "expected-orders", 100_000, "approximate number of orders, sizes the duplicate filter")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 4, "archives read concurrently")
	return cmd
}

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

func printReport(w io.Writer, r *ledger.Report) {
	fmt.Fprintf(w, "orders checked: %d\n", r.Orders)
	fmt.Fprintf(w, "mismatches:     %d\n", len(r.Mismatches))
	for _, f := range r.Mismatches {
		fmt.Fprintf(w, "  %s %s: %s\n", f.Archive, f.OrderID, f.Reason)
	}
	fmt.Fprintf(w, "catalog drift:  %d\n", len(r.Drift))
	for _, f := range r.Drift {
		fmt.Fprintf(w, "  %s %s: %s\n", f.Archive, f.OrderID, f.Reason)
	}
	fmt.Fprintf(w, "duplicates:     %d\n", len(r.Duplicates))
	for _, d := range r.Duplicates {
		fmt.Fprintf(w, "  %s in %v\n", d.OrderID, d.Archives)
	}
	if r.OK() {
		fmt.Fprintln(w, "OK")
	} else {
		fmt.Fprintln(w, "FAILED")
	}
}
