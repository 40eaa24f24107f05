package workers

import (
	"log"
	"time"

	"game-duel-system/models"
	"game-duel-system/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// staleAfter is deliberately far above every client-side recovery timeout:
// the reaper only catches sessions whose owners are truly gone (closed
// laptops, dead tabs the unload beacon never reported).
const staleAfter = 10 * time.Minute

// StartSessionReaper periodically cancels abandoned waiting/playing sessions
// and pushes the terminal snapshot so any participant still connected
// unblocks.
func StartSessionReaper(db *gorm.DB, notifier *services.RelayNotifier) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-staleAfter)

			var stale []models.GameSession
			err := db.Where("status IN ? AND updated_at < ?",
				[]string{models.SessionWaiting, models.SessionPlaying}, cutoff).
				Find(&stale).Error
			if err != nil {
				log.Printf("[Reaper] DB error: %v", err)
				return
			}

			for _, session := range stale {
				res := db.Model(&models.GameSession{}).
					Where("id = ? AND status IN ?", session.ID,
						[]string{models.SessionWaiting, models.SessionPlaying}).
					Update("status", models.SessionCancelled)
				if res.Error != nil {
					log.Printf("[Reaper] Failed to cancel session %s: %v", session.ID, res.Error)
					continue
				}
				if res.RowsAffected == 0 {
					continue // finished or cancelled since the query
				}

				log.Printf("✅ Reaped stale session %s (was %s)", session.ID, session.Status)
				session.Status = models.SessionCancelled
				notifier.SessionEnd(&session)
			}
		}),
	)
}
