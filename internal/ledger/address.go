package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds
var (
	SeedConfig = []byte("config")
	SeedUser   = []byte("user")
	SeedStake  = []byte("stake")
	SeedVault  = []byte("vault")
)

// Address is a program derived address together with its bump seed
type Address struct {
	Key  solana.PublicKey
	Bump uint8
}

func (a Address) String() string {
	return a.Key.String()
}

// AddressDeriver derives the deterministic account addresses of one program
type AddressDeriver struct {
	programID solana.PublicKey
}

func NewAddressDeriver(programID solana.PublicKey) *AddressDeriver {
	return &AddressDeriver{programID: programID}
}

func (d *AddressDeriver) ProgramID() solana.PublicKey {
	return d.programID
}

func (d *AddressDeriver) find(seeds ...[]byte) (Address, error) {
	key, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return Address{}, fmt.Errorf("failed to derive program address: %w", err)
	}
	return Address{Key: key, Bump: bump}, nil
}

func (d *AddressDeriver) Config() (Address, error) {
	return d.find(SeedConfig)
}

func (d *AddressDeriver) User(owner solana.PublicKey) (Address, error) {
	return d.find(SeedUser, owner[:])
}

func (d *AddressDeriver) Stake(owner, asset, config solana.PublicKey) (Address, error) {
	return d.find(SeedStake, owner[:], asset[:], config[:])
}

func (d *AddressDeriver) Vault(asset solana.PublicKey) (Address, error) {
	return d.find(SeedVault, asset[:])
}
