package entitlement

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store handles account tier persistence.
// Tiers are written only by the privileged tier-change endpoint (billing
// webhooks, admin action); reads fall back to Observer for unknown accounts.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new tier store.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repository", "entitlement").Logger(),
	}
}

// GetTier returns the stored tier for an account.
// A missing row is not an error - new accounts start at the lowest tier.
func (s *Store) GetTier(accountID string) (Tier, error) {
	var raw string
	err := s.db.QueryRow("SELECT tier FROM account_tiers WHERE account_id = ?", accountID).Scan(&raw)
	if err == sql.ErrNoRows {
		return TierObserver, nil
	}
	if err != nil {
		return TierObserver, fmt.Errorf("failed to get tier for account %s: %w", accountID, err)
	}

	tier := ParseTier(raw)
	if string(tier) != raw {
		// Stored labels should always be canonical; a mismatch means the row
		// predates an alias rename or was written out-of-band.
		s.log.Warn().Str("account_id", accountID).Str("stored", raw).Msg("Non-canonical tier label in store")
	}
	return tier, nil
}

// SetTier upserts the account's tier and records the change for audit.
func (s *Store) SetTier(accountID string, tier Tier) error {
	old, err := s.GetTier(accountID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()

	_, err = s.db.Exec(`
		INSERT INTO account_tiers (account_id, tier, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			tier = excluded.tier,
			updated_at = excluded.updated_at
	`, accountID, string(tier), now)
	if err != nil {
		return fmt.Errorf("failed to set tier for account %s: %w", accountID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO tier_changes (id, account_id, old_tier, new_tier, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), accountID, string(old), string(tier), now)
	if err != nil {
		// The tier change itself succeeded; a lost audit row is logged, not fatal.
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to record tier change")
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("old_tier", string(old)).
		Str("new_tier", string(tier)).
		Msg("Account tier updated")

	return nil
}
