package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/smartspend/internal/ledger"
)

// ReportWriter writes a report and returns the spreadsheet ID.
type ReportWriter interface {
	Write(ctx context.Context, report Report) (string, error)
}

// Export reads the full ledger, totals it, and hands the report to w.
func Export(ctx context.Context, w ReportWriter, l *ledger.Ledger, limits LimitSource) (string, error) {
	items, err := l.Transactions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read ledger: %w", err)
	}
	return w.Write(ctx, NewReport(items, ledger.Totals(items), limits, time.Now()))
}
