package identity

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"moff.io/walletauth/pkg/errors"
)

var errSignatureMismatch = errors.New("signature does not match address")

// VerifyEthereum checks a personal_sign signature over message against address.
func VerifyEthereum(address, message, signature string) error {
	if !common.IsHexAddress(address) {
		return errors.Errorf("invalid ethereum address %v", address)
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return errors.Wrap(err, "decode signature")
	}
	if len(sig) != crypto.SignatureLength {
		return errors.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return errors.Wrap(err, "recover signer")
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return errSignatureMismatch
	}
	return nil
}

// VerifySolana checks an ed25519 signature over message against a base58 public key.
func VerifySolana(address, message, signature string) error {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return errors.Wrap(err, "decode public key")
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return errors.Wrap(err, "decode signature")
	}
	if !sig.Verify(key, []byte(message)) {
		return errSignatureMismatch
	}
	return nil
}
