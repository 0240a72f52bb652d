package wallet

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// DefaultDerivationPath is the first account of the standard Ethereum BIP-44
// tree.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// Account is the signing identity of a wallet.
type Account interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// KeyAccount signs with an in-memory secp256k1 key.
type KeyAccount struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeyAccount wraps key.
func NewKeyAccount(key *ecdsa.PrivateKey) *KeyAccount {
	return &KeyAccount{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address implements Account.
func (a *KeyAccount) Address() common.Address { return a.address }

// SignTx implements Account.
func (a *KeyAccount) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), a.key)
}

// Credential produces the account a wallet signs with. Failures are
// configuration errors and never echo secret material.
type Credential func() (Account, error)

// FromPrivateKey parses a hex private key, with or without the 0x prefix.
func FromPrivateKey(hexKey string) Credential {
	return func() (Account, error) {
		trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
		if trimmed == "" {
			return nil, apperrors.New(apperrors.CodeConfiguration, "private key is empty")
		}
		key, err := crypto.HexToECDSA(trimmed)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeConfiguration, "private key is not a valid secp256k1 key")
		}
		return NewKeyAccount(key), nil
	}
}

// FromAccount uses a prebuilt account.
func FromAccount(account Account) Credential {
	return func() (Account, error) {
		if account == nil {
			return nil, apperrors.New(apperrors.CodeConfiguration, "account is nil")
		}
		return account, nil
	}
}

// FromMnemonic derives the key at DefaultDerivationPath from a BIP-39
// mnemonic and optional passphrase.
func FromMnemonic(mnemonic, passphrase string) Credential {
	return FromMnemonicPath(mnemonic, passphrase, DefaultDerivationPath)
}

// FromMnemonicPath derives the key at path from a BIP-39 mnemonic.
func FromMnemonicPath(mnemonic, passphrase, path string) Credential {
	return func() (Account, error) {
		seed, err := bip39.NewSeedWithErrorChecking(strings.Join(strings.Fields(mnemonic), " "), passphrase)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeConfiguration, "mnemonic is not a valid bip-39 phrase")
		}
		derivation, err := accounts.ParseDerivationPath(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "parse derivation path")
		}
		key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "derive master key")
		}
		for _, n := range derivation {
			key, err = key.Derive(n)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "derive child key")
			}
		}
		priv, err := key.ECPrivKey()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "extract private key")
		}
		return NewKeyAccount(priv.ToECDSA()), nil
	}
}

// FromKeystore decrypts a Web3 Secret Storage JSON key.
func FromKeystore(keyJSON []byte, password string) Credential {
	return func() (Account, error) {
		key, err := keystore.DecryptKey(keyJSON, password)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "decrypt keystore")
		}
		return NewKeyAccount(key.PrivateKey), nil
	}
}
