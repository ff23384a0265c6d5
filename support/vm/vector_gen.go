package vm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/minio/sha256-simd"

	"github.com/ondrix/vesting-actors/actors/abi"
)

//
// Test vector generation utilities
//

// testVector captures one transaction with the state it ran against, so another host implementation
// can replay it and compare results.
type testVector struct {
	Name     string                   `json:"name"`
	PreRoot  cid.Cid                  `json:"preRoot"`
	Pre      map[abi.Address]*Account `json:"pre"`
	Now      abi.Timestamp            `json:"now"`
	Tx       *Transaction             `json:"tx"`
	Receipt  *MessageResult           `json:"receipt"`
	PostRoot cid.Cid                  `json:"postRoot"`
}

type vectorGen struct {
	dir    string
	vector testVector
}

func newVectorGen() *vectorGen {
	// check the environment to determine if generation is on
	return &vectorGen{dir: os.Getenv("VESTING_TEST_VECTORS")}
}

func (g *vectorGen) enabled() bool {
	return g != nil && g.dir != ""
}

// before records the pre-state. The caller holds the VM lock.
func (g *vectorGen) before(v *VM, id TxID) error {
	if !g.enabled() {
		return nil
	}
	g.vector = testVector{
		Name:    id.String(),
		PreRoot: v.stateRoot,
		Pre:     make(map[abi.Address]*Account, len(v.accounts)),
		Now:     v.now,
	}
	for k, a := range v.accounts {
		g.vector.Pre[k] = a.clone()
	}
	return nil
}

// after records the transaction and its receipt and writes the vector. The caller holds the VM lock.
func (g *vectorGen) after(v *VM, tx *Transaction, result *MessageResult) error {
	if !g.enabled() {
		return nil
	}
	g.vector.Tx = tx
	g.vector.Receipt = result
	g.vector.PostRoot = v.stateRoot

	vectorBytes, err := json.MarshalIndent(&g.vector, "", "  ")
	if err != nil {
		return err
	}
	h := sha256.Sum256(vectorBytes)
	fname := fmt.Sprintf("%x-%s-%d.json", h[:8], result.Program, result.ExitCode)
	return writeVector(g.dir, fname, vectorBytes)
}

// rootDir is the directory containing all vectors
// fname is the name of this file
// vectorBytes is the data to write to file
func writeVector(rootDir, fname string, vectorBytes []byte) error {
	exists, err := dirExists(rootDir)
	if err != nil {
		return err
	}
	if !exists {
		if err := os.MkdirAll(rootDir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(rootDir, fname), vectorBytes, 0644)
}

// dirExists returns whether the given file or directory exists
func dirExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
