package txsync

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/monetix/monetix-go/store"
)

// Verifier checks the cryptographic authenticity of a store transaction.
// A verification failure is terminal for the transaction: it is never
// finished and never reported.
type Verifier interface {
	Verify(tx store.Transaction) error
}

// transactionClaims are the claims carried by the store's signed payload.
// They must match the observed transaction record.
type transactionClaims struct {
	jwt.RegisteredClaims
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	Environment           string `json:"environment"`
}

// JWSVerifier verifies the store's ES256-signed transaction payloads
// against the store's public key.
type JWSVerifier struct {
	key    *ecdsa.PublicKey
	parser *jwt.Parser
}

// NewJWSVerifier builds a verifier for the given store public key.
func NewJWSVerifier(key *ecdsa.PublicKey) *JWSVerifier {
	return &JWSVerifier{
		key: key,
		// Signed payloads carry no exp claim; validity is the backend's
		// concern, authenticity is ours.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

func (v *JWSVerifier) Verify(tx store.Transaction) error {
	if tx.SignedPayload == "" {
		return errors.New("transaction carries no signed payload")
	}
	if v.key == nil {
		return errors.New("no store public key configured")
	}

	claims := &transactionClaims{}
	_, err := v.parser.ParseWithClaims(tx.SignedPayload, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	if claims.TransactionID != tx.TransactionID {
		return fmt.Errorf("signed payload is for transaction %q, observed %q", claims.TransactionID, tx.TransactionID)
	}
	if claims.ProductID != tx.ProductID {
		return fmt.Errorf("signed payload is for product %q, observed %q", claims.ProductID, tx.ProductID)
	}
	if claims.OriginalTransactionID != "" && tx.OriginalTransactionID != "" &&
		claims.OriginalTransactionID != tx.OriginalTransactionID {
		return fmt.Errorf("original transaction id mismatch: signed %q, observed %q",
			claims.OriginalTransactionID, tx.OriginalTransactionID)
	}
	return nil
}
