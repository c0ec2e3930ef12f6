package app

import (
	"context"

	"backoffice/internal/domain"
	"backoffice/internal/domain/opname"
	"backoffice/pkg/logger"
)

// registerHooks subscribes the app to session lifecycle events.
// Call it before the service handles requests.
func registerHooks(svc *opname.Service) {
	svc.Hooks().On(domain.AfterApprove, logAdjustments)
}

// logAdjustments writes one line per stock movement of an approved session.
func logAdjustments(ctx context.Context, sess *opname.Session) error {
	log := logger.FromContext(ctx).WithComponent("reconciliation")
	for _, item := range sess.Items {
		if item.Difference == 0 {
			continue
		}
		log.Infow("stock adjusted",
			"code", sess.Code,
			"branch_id", sess.BranchID,
			"sku", item.ProductSKU,
			"line", item.LineNo,
			"delta", item.Difference,
		)
	}
	return nil
}
