package program

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type InstructionName string

const (
	InitializeConfigInstruction InstructionName = "initialize_config"
	InitializeUserInstruction   InstructionName = "initialize_user"
	StakeInstruction            InstructionName = "stake"
	ClaimInstruction            InstructionName = "claim"
	UnstakeInstruction          InstructionName = "unstake"
	ConfigureInstruction        InstructionName = "configure"
	// TransferAssetInstruction moves an asset on the local asset registry
	TransferAssetInstruction InstructionName = "transfer_asset"
)

func (n InstructionName) String() string {
	return string(n)
}

const discriminatorLen = 8

// Discriminator is the first 8 bytes of sha256("global:<name>"), the
// layout anchor programs use to tag instruction data
func Discriminator(name InstructionName) [discriminatorLen]byte {
	sum := sha256.Sum256([]byte("global:" + string(name)))
	var d [discriminatorLen]byte
	copy(d[:], sum[:discriminatorLen])
	return d
}

type InitializeConfigArgs struct {
	RewardRate       uint64
	MinStakeDuration int64
	MaxStake         uint32
}

type InitializeUserArgs struct {
	Owner solana.PublicKey
}

// StakeArgs are shared by stake, claim and unstake
type StakeArgs struct {
	Owner solana.PublicKey
	Asset solana.PublicKey
}

// ConfigureArgs changes only the fields that are set
type ConfigureArgs struct {
	RewardRate       *uint64 `bin:"optional"`
	MinStakeDuration *int64  `bin:"optional"`
	MaxStake         *uint32 `bin:"optional"`
}

type TransferAssetArgs struct {
	Asset     solana.PublicKey
	Recipient solana.PublicKey
}

// Instruction is a decoded instruction. Args holds a pointer to the args
// struct matching Name.
type Instruction struct {
	Name InstructionName
	Args any
}

var argsByDiscriminator = map[[discriminatorLen]byte]struct {
	name InstructionName
	new  func() any
}{
	Discriminator(InitializeConfigInstruction): {InitializeConfigInstruction, func() any { return new(InitializeConfigArgs) }},
	Discriminator(InitializeUserInstruction):   {InitializeUserInstruction, func() any { return new(InitializeUserArgs) }},
	Discriminator(StakeInstruction):            {StakeInstruction, func() any { return new(StakeArgs) }},
	Discriminator(ClaimInstruction):            {ClaimInstruction, func() any { return new(StakeArgs) }},
	Discriminator(UnstakeInstruction):          {UnstakeInstruction, func() any { return new(StakeArgs) }},
	Discriminator(ConfigureInstruction):        {ConfigureInstruction, func() any { return new(ConfigureArgs) }},
	Discriminator(TransferAssetInstruction):    {TransferAssetInstruction, func() any { return new(TransferAssetArgs) }},
}

// Encode serializes an instruction as discriminator followed by borsh encoded args
func Encode(name InstructionName, args any) ([]byte, error) {
	d := Discriminator(name)
	if _, ok := argsByDiscriminator[d]; !ok {
		return nil, fmt.Errorf("unknown instruction %q", name)
	}

	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*Instruction, error) {
	if len(data) < discriminatorLen {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(data))
	}

	var d [discriminatorLen]byte
	copy(d[:], data[:discriminatorLen])
	entry, ok := argsByDiscriminator[d]
	if !ok {
		return nil, fmt.Errorf("unknown instruction discriminator 0x%x", d)
	}

	args := entry.new()
	decoder := bin.NewBorshDecoder(data[discriminatorLen:])
	if err := decoder.Decode(args); err != nil {
		return nil, fmt.Errorf("failed to decode %s args: %w", entry.name, err)
	}
	if decoder.HasRemaining() {
		return nil, fmt.Errorf("trailing bytes after %s args", entry.name)
	}

	return &Instruction{Name: entry.name, Args: args}, nil
}
