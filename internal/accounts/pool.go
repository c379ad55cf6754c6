// Package accounts holds the static pool of funded ledger accounts and selects the operator of a
// scenario from it.
package accounts

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/validators"
)

// Credential is a funded account of the pool and the private key controlling it.
type Credential struct {
	ID         ledger.AccountID
	PrivateKey string
}

// Pool is the ordered list of credentials the resolver scans.
type Pool []Credential

type poolFile struct {
	Accounts []credentialEntry `toml:"accounts" validate:"gt=0,dive"`
}

type credentialEntry struct {
	ID         string `toml:"id" validate:"entity_id"`
	PrivateKey string `toml:"private_key" validate:"required"`
}

func (f poolFile) pool() Pool {
	pool := make(Pool, 0, len(f.Accounts))
	for _, entry := range f.Accounts {
		pool = append(pool, Credential{ID: ledger.AccountID(entry.ID), PrivateKey: entry.PrivateKey})
	}
	return pool
}

// LoadPool reads a pool from a TOML file of [[accounts]] tables with id and private_key keys.
func LoadPool(path string) (Pool, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading accounts file %s: %w", path, err)
	}

	var file poolFile
	if err = tree.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unmarshalling accounts file %s: %w", path, err)
	}
	if err = validate(file); err != nil {
		return nil, fmt.Errorf("validating accounts file %s: %w", path, err)
	}

	return file.pool(), nil
}

// PoolFromEnv reads ACCOUNT_<n>_ID and ACCOUNT_<n>_KEY pairs, starting at n=1 and stopping at the
// first missing ID.
func PoolFromEnv() (Pool, error) {
	return poolFromLookup(os.LookupEnv)
}

func poolFromLookup(lookup func(string) (string, bool)) (Pool, error) {
	var file poolFile
	for n := 1; ; n++ {
		prefix := "ACCOUNT_" + strconv.Itoa(n)
		id, ok := lookup(prefix + "_ID")
		if !ok {
			break
		}
		key, _ := lookup(prefix + "_KEY")
		file.Accounts = append(file.Accounts, credentialEntry{
			ID:         strings.TrimSpace(id),
			PrivateKey: strings.TrimSpace(key),
		})
	}

	if err := validate(file); err != nil {
		return nil, fmt.Errorf("validating accounts from environment: %w", err)
	}
	return file.pool(), nil
}

func validate(file poolFile) error {
	err := validators.NewValidator().Struct(file)
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return fmt.Errorf("invalid accounts: %v", validators.ParseValidationError(vErrs))
	}
	return err
}
