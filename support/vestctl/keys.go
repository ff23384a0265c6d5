package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// keyStore keeps ed25519 seeds as multibase text files named after their owner.
type keyStore struct {
	dir string
}

func newKeyStore(cctx *cli.Context) *keyStore {
	return &keyStore{dir: cctx.String("keys")}
}

func (ks *keyStore) path(name string) string {
	return filepath.Join(ks.dir, name+".key")
}

func (ks *keyStore) Generate(name string) (ed25519.PrivateKey, error) {
	if _, err := os.Stat(ks.path(name)); err == nil {
		return nil, errors.Errorf("key %q already exists", name)
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return key, ks.Put(name, key)
}

func (ks *keyStore) Put(name string, key ed25519.PrivateKey) error {
	if err := os.MkdirAll(ks.dir, 0o700); err != nil {
		return err
	}
	text, err := multibase.Encode(multibase.Base58BTC, key.Seed())
	if err != nil {
		return err
	}
	return os.WriteFile(ks.path(name), []byte(text+"\n"), 0o600)
}

func (ks *keyStore) Get(name string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(ks.path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "key %q", name)
	}
	_, seed, err := multibase.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.Wrapf(err, "key %q", name)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("key %q has a %d byte seed", name, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func keyAddress(key ed25519.PrivateKey) abi.Address {
	addr, err := abi.NewAddress(key.Public().(ed25519.PublicKey))
	if err != nil {
		panic(err)
	}
	return addr
}

// Resolve accepts a key name or a base58 address.
func (ks *keyStore) Resolve(nameOrAddr string) (abi.Address, error) {
	if key, err := ks.Get(nameOrAddr); err == nil {
		return keyAddress(key), nil
	}
	addr, err := abi.ParseAddress(nameOrAddr)
	if err != nil {
		return abi.Undef, errors.Errorf("%q is neither a key name nor an address", nameOrAddr)
	}
	return addr, nil
}

var keygenCmd = &cli.Command{
	Name:      "keygen",
	Usage:     "Generate a named key",
	ArgsUsage: "NAME",
	Action: func(cctx *cli.Context) error {
		name := cctx.Args().First()
		if name == "" {
			return errors.New("key name required")
		}
		key, err := newKeyStore(cctx).Generate(name)
		if err != nil {
			return err
		}
		_, err = cctx.App.Writer.Write([]byte(keyAddress(key).String() + "\n"))
		return err
	},
}

var addressCmd = &cli.Command{
	Name:      "address",
	Usage:     "Print the address of a named key",
	ArgsUsage: "NAME",
	Action: func(cctx *cli.Context) error {
		addr, err := newKeyStore(cctx).Resolve(cctx.Args().First())
		if err != nil {
			return err
		}
		_, err = cctx.App.Writer.Write([]byte(addr.String() + "\n"))
		return err
	},
}
