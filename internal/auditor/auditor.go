// Package auditor periodically re-derives every affiliate balance from the
// order and withdrawal history and logs any divergence from the stored value.
// It never repairs the ledger, it only makes drift visible.
package auditor

import (
	"context"
	"math"
	"time"

	"github.com/01030959804/affiliate-ledger/internal/app"
	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/models"
)

// Balances are kept in numeric(12,2); anything past rounding noise is drift.
const divergenceTolerance = 0.005

type Auditor struct {
	interval time.Duration
	app      *app.App
	log      *logger.Logger
}

func NewAuditor(interval time.Duration, app *app.App, log *logger.Logger) *Auditor {
	return &Auditor{interval: interval, app: app, log: log}
}

func (auditor *Auditor) audit(ctx context.Context) {
	reports, err := auditor.app.LedgerReports(ctx)
	if err != nil {
		auditor.log.Sugar().Errorf("Failed to collect ledger reports: %s", err)
		return
	}

	for _, report := range reports {
		if Diverged(report) {
			auditor.log.Sugar().Errorf("Ledger divergence for affiliate %d: stored %.2f, derived %.2f (confirmed %.2f, withdrawn %.2f)",
				report.AffiliateID, report.Balance, report.DerivedBalance, report.ConfirmedTotal, report.WithdrawnTotal)
		}
	}
}

// Diverged reports whether the stored balance no longer matches the balance
// re-derived from history.
func Diverged(report models.LedgerReport) bool {
	return math.Abs(report.Balance-report.DerivedBalance) > divergenceTolerance
}

func Run(ctx context.Context, auditor *Auditor) {
	auditor.log.Sugar().Infof("Running ledger auditor every %s", auditor.interval)

	ticker := time.NewTicker(auditor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			auditor.audit(ctx)
		}
	}
}
