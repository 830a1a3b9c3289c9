package workers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dayleaf-dev/dayleaf/internal/models"
	"github.com/dayleaf-dev/dayleaf/internal/tasks"
)

// staleTokenAge is how long an access token may sit unused before the sweep
// removes it.
const staleTokenAge = 30 * 24 * time.Hour

// HandlePasswordResetEmail delivers one password reset email.
//
// TODO(mail): wire an SMTP sender once the mail provider is chosen; until
// then delivery is log-only so the flow stays testable end to end.
func HandlePasswordResetEmail(ctx context.Context, t *asynq.Task, log zerolog.Logger) error {
	payload, err := tasks.ParsePasswordResetEmailPayload(t)
	if err != nil {
		return err
	}

	log.Info().
		Str("email", payload.Email).
		Msg("Password reset email dispatched")
	return nil
}

// HandleCredentialSweep purges stale access tokens and dead reset records.
func HandleCredentialSweep(ctx context.Context, t *asynq.Task, db *gorm.DB, log zerolog.Logger) error {
	cutoff := time.Now().Add(-staleTokenAge)

	res := db.WithContext(ctx).
		Where("(last_used_at IS NULL AND created_at < ?) OR last_used_at < ?", cutoff, cutoff).
		Delete(&models.AccessToken{})
	if res.Error != nil {
		return res.Error
	}
	tokensPurged := res.RowsAffected

	resetCutoff := time.Now().Add(-24 * time.Hour)
	res = db.WithContext(ctx).
		Where("used_at IS NOT NULL OR created_at < ?", resetCutoff).
		Delete(&models.PasswordReset{})
	if res.Error != nil {
		return res.Error
	}

	log.Info().
		Int64("tokens_purged", tokensPurged).
		Int64("resets_purged", res.RowsAffected).
		Msg("Credential sweep complete")
	return nil
}

// StartSweepScheduler enqueues a credential sweep every night. Returns the
// running scheduler so callers can stop it on shutdown.
func StartSweepScheduler(client *asynq.Client, log zerolog.Logger) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@daily", func() {
		task, err := tasks.NewCredentialSweepTask()
		if err != nil {
			log.Error().Err(err).Msg("Failed to build sweep task")
			return
		}
		if _, err := client.Enqueue(task); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue sweep task")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule credential sweep")
	}

	c.Start()
	return c
}
