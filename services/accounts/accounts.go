package accounts

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

type AccountsService struct {
	accountsRepo *db.PostgresAccountsRepository
}

func NewAccountsService(accountsRepo *db.PostgresAccountsRepository) *AccountsService {
	return &AccountsService{accountsRepo: accountsRepo}
}

func (s *AccountsService) GetAccountByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.SocialAccount], error) {
	log.Printf("📋 Starting to get account by ID: %s", id)
	if !core.IsValidULID(id) {
		return mo.None[*models.SocialAccount](), fmt.Errorf("account ID must be a valid ULID")
	}

	maybeAccount, err := s.accountsRepo.GetAccountByID(ctx, id)
	if err != nil {
		return mo.None[*models.SocialAccount](), fmt.Errorf("failed to get account: %w", err)
	}
	if !maybeAccount.IsPresent() {
		log.Printf("📋 Completed successfully - account not found")
		return mo.None[*models.SocialAccount](), nil
	}

	log.Printf("📋 Completed successfully - retrieved account: %s", id)
	return maybeAccount, nil
}

// ResolveAccountByPageID finds the owning account for a webhook recipient
// page id. Direct external_page_id match first; if that misses, scan the
// settings of every same-platform account for a linked page id.
func (s *AccountsService) ResolveAccountByPageID(
	ctx context.Context,
	platform models.Platform,
	pageID string,
) (mo.Option[*models.SocialAccount], error) {
	log.Printf("📋 Starting to resolve account for page: %s (%s)", pageID, platform)
	if pageID == "" {
		return mo.None[*models.SocialAccount](), fmt.Errorf("page ID cannot be empty")
	}

	maybeAccount, err := s.accountsRepo.GetAccountByExternalPageID(ctx, platform, pageID)
	if err != nil {
		return mo.None[*models.SocialAccount](), fmt.Errorf("failed to look up account by page id: %w", err)
	}
	if maybeAccount.IsPresent() {
		log.Printf("📋 Completed successfully - direct page match: %s", maybeAccount.MustGet().ID)
		return maybeAccount, nil
	}

	accounts, err := s.accountsRepo.ListAccountsByPlatform(ctx, platform)
	if err != nil {
		return mo.None[*models.SocialAccount](), fmt.Errorf("failed to scan platform accounts: %w", err)
	}
	for _, account := range accounts {
		for _, linked := range account.Settings.LinkedPageIDs {
			if linked == pageID {
				log.Printf("📋 Completed successfully - linked page match: %s", account.ID)
				return mo.Some(account), nil
			}
		}
	}

	log.Printf("📋 Completed successfully - no account owns page %s", pageID)
	return mo.None[*models.SocialAccount](), nil
}

func (s *AccountsService) ListAccountsExpiringBefore(
	ctx context.Context,
	cutoff time.Time,
) ([]*models.SocialAccount, error) {
	log.Printf("📋 Starting to list accounts with tokens expiring before %s", cutoff.Format(time.RFC3339))

	accounts, err := s.accountsRepo.ListAccountsExpiringBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring accounts: %w", err)
	}

	log.Printf("📋 Completed successfully - found %d expiring accounts", len(accounts))
	return accounts, nil
}

func (s *AccountsService) UpdateAccountToken(
	ctx context.Context,
	accountID, encryptedToken string,
	expiresAt time.Time,
) error {
	log.Printf("📋 Starting to update token for account: %s", accountID)
	if !core.IsValidULID(accountID) {
		return fmt.Errorf("account ID must be a valid ULID")
	}
	if encryptedToken == "" {
		return fmt.Errorf("encrypted token cannot be empty")
	}

	if err := s.accountsRepo.UpdateAccountToken(ctx, accountID, encryptedToken, expiresAt); err != nil {
		return fmt.Errorf("failed to update account token: %w", err)
	}

	log.Printf("📋 Completed successfully - token updated for account: %s", accountID)
	return nil
}
