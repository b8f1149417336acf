package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivationTokenTTL bounds how long the emailed activation link stays usable
const ActivationTokenTTL = 72 * time.Hour

// Common errors
var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrInvalidEmail = errors.New("email is not a valid address")
	ErrInvalidPhone = errors.New("phone must contain 8 to 15 digits")
)

// Account represents a customer account
type Account struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	IsActive            bool       `json:"is_active"`
	IsVerified          bool       `json:"is_verified"`
	IsAutoCreated       bool       `json:"is_auto_created"` // Created only to complete a purchase
	ActivationTokenHash string     `json:"-"`
	ActivationExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewAutoCreatedAccount creates an account for a buyer without one. It returns the
// account and the raw one-time activation token; only the token hash is kept on
// the account.
func NewAutoCreatedAccount(name, email, phone string) (*Account, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", ErrEmptyName
	}

	normalizedEmail, err := NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	normalizedPhone, err := NormalizePhone(phone)
	if err != nil {
		return nil, "", err
	}

	token, err := newActivationToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ActivationTokenTTL)

	return &Account{
		ID:                  uuid.New(),
		Name:                name,
		Email:               normalizedEmail,
		Phone:               normalizedPhone,
		IsActive:            true,
		IsVerified:          true,
		IsAutoCreated:       true,
		ActivationTokenHash: HashActivationToken(token),
		ActivationExpiresAt: &expiresAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, token, nil
}

// MatchesIdentity reports whether both identifiers equal the stored ones after normalisation
func (a *Account) MatchesIdentity(email, phone string) bool {
	normalizedEmail, err := NormalizeEmail(email)
	if err != nil {
		return false
	}
	normalizedPhone, err := NormalizePhone(phone)
	if err != nil {
		return false
	}
	return a.Email == normalizedEmail && a.Phone == normalizedPhone
}

// NormalizeEmail trims and lower-cases an address and checks its syntax
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizePhone strips separators, keeping a leading plus sign
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)

	var sb strings.Builder
	digits := 0
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	if digits < 8 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return sb.String(), nil
}

// HashActivationToken returns the hex SHA-256 digest stored in place of the token
func HashActivationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newActivationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
