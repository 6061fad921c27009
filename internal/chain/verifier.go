package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureVerifier checks that a message was signed by the key owning
// a claimed wallet address.
type SignatureVerifier interface {
	Verify(address, message, signature string) (bool, error)
}

// PersonalSignVerifier verifies EIP-191 personal_sign signatures by
// recovering the signer address and comparing it to the claimed one.
type PersonalSignVerifier struct{}

func NewPersonalSignVerifier() PersonalSignVerifier {
	return PersonalSignVerifier{}
}

func (PersonalSignVerifier) Verify(address, message, signature string) (bool, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Wallets produce V as 27/28, the recovery code expects 0/1.
	recoveryID := sig[crypto.RecoveryIDOffset]
	if recoveryID >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] = recoveryID - 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false, fmt.Errorf("signature recovery failed: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), address), nil
}
