package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, name, email, phone, is_active, is_verified, is_auto_created,
			COALESCE(activation_token_hash, ''), activation_expires_at, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. Email and phone are unique; a clash yields
// account.ErrDuplicateIdentity.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, phone, is_active, is_verified, is_auto_created,
			activation_token_hash, activation_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Name,
		acc.Email,
		acc.Phone,
		acc.IsActive,
		acc.IsVerified,
		acc.IsAutoCreated,
		acc.ActivationTokenHash,
		acc.ActivationExpiresAt,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if strings.Contains(constraint, "phone") {
				return account.ErrDuplicateIdentity{Field: "phone", Value: acc.Phone}
			}
			return account.ErrDuplicateIdentity{Field: "email", Value: acc.Email}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByEmail retrieves an account by its normalised email address
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No account uses this email
		}
		r.logger.Error("Failed to get account by email", "error", err)
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return acc, nil
}

// GetByPhone retrieves an account by its normalised phone number
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE phone = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No account uses this phone
		}
		r.logger.Error("Failed to get account by phone", "error", err)
		return nil, fmt.Errorf("failed to get account by phone: %w", err)
	}

	return acc, nil
}

// Activate marks the account active and verified. It is safe to repeat.
func (r *AccountRepository) Activate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET is_active = TRUE, is_verified = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to activate account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to activate account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

// DeleteIfOrphaned deletes an auto-created account only when no transaction
// references it. The check and the delete are one statement.
func (r *AccountRepository) DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		DELETE FROM accounts
		WHERE id = $1
			AND is_auto_created
			AND NOT EXISTS (SELECT 1 FROM transactions WHERE owner_user_id = $1)
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete orphaned account", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to delete orphaned account: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Name,
		&acc.Email,
		&acc.Phone,
		&acc.IsActive,
		&acc.IsVerified,
		&acc.IsAutoCreated,
		&acc.ActivationTokenHash,
		&acc.ActivationExpiresAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
