package tokenscheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samber/mo"

	"msgbridge/clients"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/opsalert"
	"msgbridge/services"
)

const (
	DefaultTickInterval    = time.Minute
	DefaultBatchSize       = 10
	DefaultExpiryLookahead = time.Hour
	// DefaultCompletedRetention is how long COMPLETED jobs stay around for
	// inspection before the maintenance pass deletes them.
	DefaultCompletedRetention = 24 * time.Hour
)

type Config struct {
	TickInterval       time.Duration
	BatchSize          int
	ExpiryLookahead    time.Duration
	CompletedRetention time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ExpiryLookahead <= 0 {
		c.ExpiryLookahead = DefaultExpiryLookahead
	}
	if c.CompletedRetention <= 0 {
		c.CompletedRetention = DefaultCompletedRetention
	}
	return c
}

// Scheduler drives token refresh jobs: it seeds jobs for accounts whose
// tokens are close to expiry, claims due jobs, exchanges tokens against the
// Graph API and schedules backed-off retries on failure.
type Scheduler struct {
	tokenJobsService services.TokenJobsService
	accountsService  services.AccountsService
	metaClient       clients.MetaClient
	cipher           *core.TokenCipher
	notifier         *opsalert.Notifier
	txManager        services.TransactionManager
	cfg              Config

	// seededExpiries remembers which token expiry we already enqueued a
	// refresh for, so the near-expiry scan does not create a job per tick.
	// A successful refresh moves the expiry forward and clears the guard.
	seededExpiries map[string]time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

func NewScheduler(
	tokenJobsService services.TokenJobsService,
	accountsService services.AccountsService,
	metaClient clients.MetaClient,
	cipher *core.TokenCipher,
	notifier *opsalert.Notifier,
	txManager services.TransactionManager,
	cfg Config,
) *Scheduler {
	return &Scheduler{
		tokenJobsService: tokenJobsService,
		accountsService:  accountsService,
		metaClient:       metaClient,
		cipher:           cipher,
		notifier:         notifier,
		txManager:        txManager,
		cfg:              cfg.withDefaults(),
		seededExpiries:   make(map[string]time.Time),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to shut it down.
func (s *Scheduler) Start() {
	log.Printf("📋 Starting token refresh scheduler (tick: %s, batch: %d)", s.cfg.TickInterval, s.cfg.BatchSize)
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(context.Background())
			}
		}
	}()
}

// Stop terminates the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		log.Printf("📋 Token refresh scheduler stopped")
	})
}

// Tick runs one full scheduler pass: seed near-expiry jobs, process due
// jobs, clean up old completed ones. Exported so callers can run it on
// demand without the background loop.
func (s *Scheduler) Tick(ctx context.Context) {
	now := time.Now()
	if err := s.seedNearExpiryJobs(ctx, now); err != nil {
		log.Printf("❌ Failed to seed near-expiry refresh jobs: %v", err)
	}
	if err := s.processDueJobs(ctx, now); err != nil {
		log.Printf("❌ Failed to process due refresh jobs: %v", err)
	}
	if _, err := s.tokenJobsService.CleanupCompletedBefore(ctx, now.Add(-s.cfg.CompletedRetention)); err != nil {
		log.Printf("❌ Failed to clean up completed refresh jobs: %v", err)
	}
}

func (s *Scheduler) seedNearExpiryJobs(ctx context.Context, now time.Time) error {
	accounts, err := s.accountsService.ListAccountsExpiringBefore(ctx, now.Add(s.cfg.ExpiryLookahead))
	if err != nil {
		return fmt.Errorf("failed to list expiring accounts: %w", err)
	}

	for _, account := range accounts {
		if seeded, ok := s.seededExpiries[account.ID]; ok && seeded.Equal(account.TokenExpiresAt) {
			continue
		}
		if _, err := s.tokenJobsService.RequestRefresh(
			ctx, account.ID, models.TokenJobPriorityMedium, false, now,
		); err != nil {
			log.Printf("❌ Failed to enqueue refresh for account %s: %v", account.ID, err)
			continue
		}
		s.seededExpiries[account.ID] = account.TokenExpiresAt
	}
	return nil
}

func (s *Scheduler) processDueJobs(ctx context.Context, now time.Time) error {
	jobs, err := s.tokenJobsService.GetDueJobs(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get due jobs: %w", err)
	}

	for _, job := range jobs {
		claimed, err := s.tokenJobsService.ClaimJob(ctx, job.ID)
		if err != nil {
			log.Printf("❌ Failed to claim job %s: %v", job.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		s.processJob(ctx, job, now)
	}
	return nil
}

func (s *Scheduler) processJob(ctx context.Context, job *models.TokenRefreshJob, now time.Time) {
	log.Printf("📋 Starting to process token refresh job: %s (account: %s)", job.ID, job.AccountID)

	if err := s.refreshAccountToken(ctx, job, now); err != nil {
		log.Printf("❌ Token refresh job %s failed: %v", job.ID, err)
		// The FAILED mark and its retry job must land together, otherwise a
		// crash between them silently drops the retry chain.
		var retry mo.Option[*models.TokenRefreshJob]
		txErr := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			if markErr := s.tokenJobsService.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
				return markErr
			}
			scheduled, retryErr := s.tokenJobsService.ScheduleRetry(ctx, job)
			if retryErr != nil {
				return retryErr
			}
			retry = scheduled
			return nil
		})
		if txErr != nil {
			log.Printf("❌ Failed to record failure for job %s: %v", job.ID, txErr)
			return
		}
		if retry.IsAbsent() {
			s.notifier.TokenRefreshExhausted(job.AccountID, err.Error())
		}
		return
	}

	log.Printf("📋 Completed successfully - token refresh job: %s", job.ID)
}

func (s *Scheduler) refreshAccountToken(ctx context.Context, job *models.TokenRefreshJob, now time.Time) error {
	maybeAccount, err := s.accountsService.GetAccountByID(ctx, job.AccountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	account, ok := maybeAccount.Get()
	if !ok {
		return fmt.Errorf("account %s: %w", job.AccountID, core.ErrNotFound)
	}

	if !job.Forced && account.TokenExpiresAt.After(now.Add(s.cfg.ExpiryLookahead)) {
		log.Printf("📋 Token for account %s not near expiry, skipping refresh", account.ID)
		return s.tokenJobsService.MarkJobCompleted(ctx, job.ID, "token not near expiry")
	}

	currentToken, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt access token: %w", err)
	}

	refreshed, err := s.metaClient.RefreshToken(ctx, currentToken)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(refreshed.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refreshed token: %w", err)
	}

	if err := s.accountsService.UpdateAccountToken(ctx, account.ID, encrypted, refreshed.ExpiresAt); err != nil {
		return fmt.Errorf("failed to store refreshed token: %w", err)
	}

	delete(s.seededExpiries, account.ID)
	return s.tokenJobsService.MarkJobCompleted(ctx, job.ID, "")
}
