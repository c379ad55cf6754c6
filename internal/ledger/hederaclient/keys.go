package hederaclient

import (
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

type privateKey struct {
	key hedera.PrivateKey
}

var _ ledger.PrivateKey = privateKey{}

func (k privateKey) PublicKey() ledger.PublicKey {
	return publicKey{key: k.key.PublicKey()}
}

func (k privateKey) Sign(message []byte) []byte {
	return k.key.Sign(message)
}

func (k privateKey) String() string {
	return k.key.String()
}

type publicKey struct {
	key hedera.PublicKey
}

var _ ledger.PublicKey = publicKey{}

func (k publicKey) String() string {
	return k.key.String()
}

func (k publicKey) Verify(message, signature []byte) bool {
	return k.key.Verify(message, signature)
}

func ParsePrivateKey(key string) (ledger.PrivateKey, error) {
	parsed, err := hedera.PrivateKeyFromString(key)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return privateKey{key: parsed}, nil
}

func GeneratePrivateKey() (ledger.PrivateKey, error) {
	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return privateKey{key: key}, nil
}

func sdkPrivateKey(key ledger.PrivateKey) (hedera.PrivateKey, error) {
	if k, ok := key.(privateKey); ok {
		return k.key, nil
	}
	parsed, err := hedera.PrivateKeyFromString(key.String())
	if err != nil {
		return hedera.PrivateKey{}, fmt.Errorf("converting private key: %w", err)
	}
	return parsed, nil
}

// sdkKey converts an authorization policy to its SDK form. Threshold keys become key lists with a
// threshold.
func sdkKey(key ledger.Key) (hedera.Key, error) {
	switch k := key.(type) {
	case publicKey:
		return k.key, nil
	case *ledger.ThresholdKey:
		keyList := hedera.KeyListWithThreshold(k.Threshold)
		for i, member := range k.Keys {
			converted, err := sdkKey(member)
			if err != nil {
				return nil, fmt.Errorf("converting threshold key member %d: %w", i, err)
			}
			keyList.Add(converted)
		}
		return keyList, nil
	case ledger.PublicKey:
		parsed, err := hedera.PublicKeyFromString(k.String())
		if err != nil {
			return nil, fmt.Errorf("converting public key: %w", err)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
}

func optionalSDKKey(key ledger.Key) (hedera.Key, bool, error) {
	if key == nil {
		return nil, false, nil
	}
	converted, err := sdkKey(key)
	if err != nil {
		return nil, false, err
	}
	return converted, true, nil
}
