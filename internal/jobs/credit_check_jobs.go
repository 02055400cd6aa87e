package jobs

import (
	"context"

	"tenantry-backend/internal/logger"
)

// ExpireStaleCreditChecks fails checks that have been pending longer than the
// configured timeout. Checks waiting on a bureau callback that never arrives
// end up here.
func (jr *JobRunner) ExpireStaleCreditChecks() {
	jr.runWithRecovery("ExpireStaleCreditChecks", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
		defer cancel()

		expired, err := jr.services.CreditCheck.ExpireStalePending(ctx)
		if err != nil {
			logger.Error("Failed to expire stale credit checks", "error", err)
			return
		}
		if expired > 0 {
			logger.Info("Expired stale credit checks", "count", expired)
		}
	})
}
