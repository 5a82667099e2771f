package program

import (
	"github.com/gagliardetto/solana-go"
)

// Clusters the program is deployed to
const (
	ClusterDevnet      = "devnet"
	ClusterTestnet     = "testnet"
	ClusterMainnetBeta = "mainnet-beta"
	ClusterLocalnet    = "localnet"
)

// NftStakingProgramID is the address the program is published under
var NftStakingProgramID = solana.MustPublicKeyFromBase58("5fF9fccWZZJZV19bimi6dJyBm3rbZGG4u68Y9GSiDrz2")

// devnet and testnet share a deployment
var testClusterProgramID = solana.MustPublicKeyFromBase58("5fF9fccWZZJZV19bimi6dJyBm3rbZGG4u68Y9GSiDrz2")

// ProgramIDForCluster returns the program id deployed on cluster. Unknown
// clusters get the published id.
func ProgramIDForCluster(cluster string) solana.PublicKey {
	switch cluster {
	case ClusterDevnet, ClusterTestnet:
		return testClusterProgramID
	case ClusterMainnetBeta:
		return NftStakingProgramID
	default:
		return NftStakingProgramID
	}
}

// ResolveProgramID prefers an explicitly configured id over the cluster default
func ResolveProgramID(cluster, configured string) (solana.PublicKey, error) {
	if configured == "" {
		return ProgramIDForCluster(cluster), nil
	}
	return solana.PublicKeyFromBase58(configured)
}
