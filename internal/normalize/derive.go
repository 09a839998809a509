package normalize

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// SPL token program addresses used for associated-account derivation.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// ErrDerivation is returned when address derivation fails: a malformed input
// key or no off-curve address for any bump seed.
var ErrDerivation = errors.New("address derivation failed")

// DeriveVaultOwner derives the market vault owner PDA from the market address
// and the market program id.
func DeriveVaultOwner(marketID, marketProgramID string) (string, error) {
	market, err := decodeKey(marketID)
	if err != nil {
		return "", err
	}
	program, err := decodeKey(marketProgramID)
	if err != nil {
		return "", err
	}
	return findProgramAddress([][]byte{market}, program)
}

// DeriveAssociatedTokenAccount derives the owner's associated token account
// for a mint.
func DeriveAssociatedTokenAccount(owner, mint string) (string, error) {
	ownerKey, err := decodeKey(owner)
	if err != nil {
		return "", err
	}
	mintKey, err := decodeKey(mint)
	if err != nil {
		return "", err
	}
	tokenProgram, err := decodeKey(TokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgram, err := decodeKey(AssociatedTokenProgramID)
	if err != nil {
		return "", err
	}
	return findProgramAddress([][]byte{ownerKey, tokenProgram, mintKey}, ataProgram)
}

// findProgramAddress implements the Solana PDA algorithm: append a descending
// bump seed, hash seeds | bump | programID | "ProgramDerivedAddress" with
// SHA256, and take the first digest that is not a valid ed25519 curve point.
func findProgramAddress(seeds [][]byte, programID []byte) (string, error) {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}
	return "", fmt.Errorf("%w: no off-curve address for any bump seed", ErrDerivation)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// decodeKey decodes a base58 public key and validates its length.
func decodeKey(key string) ([]byte, error) {
	raw, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: decode key %q: %v", ErrDerivation, key, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: key %q is %d bytes, want 32", ErrDerivation, key, len(raw))
	}
	return raw, nil
}
