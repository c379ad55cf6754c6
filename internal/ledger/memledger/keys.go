package memledger

import (
	"fmt"

	"github.com/stellar/go-stellar-sdk/keypair"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// Keys of the in-memory network are ed25519 keypairs; the private key string is the strkey seed and
// the public key string is the strkey address.
type privateKey struct {
	kp *keypair.Full
}

var _ ledger.PrivateKey = privateKey{}

func (k privateKey) PublicKey() ledger.PublicKey {
	return publicKey{address: k.kp.Address()}
}

func (k privateKey) Sign(message []byte) []byte {
	signature, err := k.kp.Sign(message)
	if err != nil {
		return nil
	}
	return signature
}

func (k privateKey) String() string {
	return k.kp.Seed()
}

type publicKey struct {
	address string
}

var _ ledger.PublicKey = publicKey{}

func (k publicKey) String() string {
	return k.address
}

func (k publicKey) Verify(message, signature []byte) bool {
	kp, err := keypair.ParseAddress(k.address)
	if err != nil {
		return false
	}
	return kp.Verify(message, signature) == nil
}

func ParsePrivateKey(key string) (ledger.PrivateKey, error) {
	kp, err := keypair.ParseFull(key)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return privateKey{kp: kp}, nil
}

func GeneratePrivateKey() (ledger.PrivateKey, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return privateKey{kp: kp}, nil
}
