// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSettlementScheduler runs the periodic ledger-driven sweeps: expired
// bounties drop out of review, and challenges whose voting window has closed
// get finalized. Both sweeps are idempotent, so overlapping runs are
// harmless.
func (s *JudgingService) StartSettlementScheduler(bounties *BountyService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			height, err := s.Ledger.CurrentHeight(s.DB)
			if err != nil {
				log.Printf("[Settlement] cursor read failed: %v", err)
				return
			}

			swept, err := bounties.SweepExpired(height)
			if err != nil {
				log.Printf("[Settlement] bounty sweep failed: %v", err)
			} else if swept > 0 {
				log.Printf("[Settlement] swept %d expired bounties at height %d", swept, height)
			}

			finalized, err := s.FinalizeDue(height)
			if err != nil {
				log.Printf("[Settlement] finalize sweep failed: %v", err)
				return
			}
			if finalized > 0 {
				log.Printf("✅ Finalized %d challenges at height %d", finalized, height)
			}
		}),
	)
}
