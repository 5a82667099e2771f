package state

import (
	"slices"

	"github.com/tedkimdev/nft-staking/internal/types"
)

// stakeStateChangeMap maps the current state of a stake to the states it can
// transition to. A claim keeps the record STAKED.
var stakeStateChangeMap = map[types.StakeState][]types.StakeState{
	types.StateEmpty: {
		types.StateStaked,
	},
	types.StateStaked: {
		types.StateStaked,
		types.StateUnstaking,
	},
	types.StateUnstaking: {
		types.StateEmpty,
	},
}

func IsQualifiedStateForStakeStateChange(currentState, newState types.StakeState) bool {
	qualifiedStates, ok := stakeStateChangeMap[currentState]
	if !ok {
		return false
	}
	return slices.Contains(qualifiedStates, newState)
}
