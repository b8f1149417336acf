package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingServerKey = errors.New("gateway server key is not configured")
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignatureVerifier authenticates webhook payloads with the shared server key
type SignatureVerifier struct {
	serverKey string
}

// NewSignatureVerifier creates a verifier; an empty key makes every check fail with ErrMissingServerKey
func NewSignatureVerifier(serverKey string) *SignatureVerifier {
	return &SignatureVerifier{serverKey: serverKey}
}

// Sign computes the hex SHA-512 of orderID + statusCode + grossAmount + serverKey
func Sign(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the signature over the raw fields and compares it in constant time
func (v *SignatureVerifier) Verify(orderID, statusCode, grossAmount, signature string) error {
	if v.serverKey == "" {
		return ErrMissingServerKey
	}

	expected := Sign(orderID, statusCode, grossAmount, v.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
