package types

import "fmt"

// Enum values for Stake State
type StakeState string

const (
	StateEmpty     StakeState = "EMPTY"
	StateStaked    StakeState = "STAKED"
	StateUnstaking StakeState = "UNSTAKING"
)

func (s StakeState) String() string {
	return string(s)
}

func StakeStateFromString(s string) (StakeState, error) {
	switch s {
	case StateEmpty.String():
		return StateEmpty, nil
	case StateStaked.String():
		return StateStaked, nil
	case StateUnstaking.String():
		return StateUnstaking, nil
	default:
		return "", fmt.Errorf("invalid stake state: %s", s)
	}
}

// HoldsCustody reports whether an asset in this state must have a vault entry
func (s StakeState) HoldsCustody() bool {
	return s == StateStaked || s == StateUnstaking
}

// QualifiedStatesForClaim returns the qualified current states for a claim
func QualifiedStatesForClaim() []StakeState {
	return []StakeState{StateStaked}
}

// QualifiedStatesForUnstake returns the qualified current states for starting an unstake
func QualifiedStatesForUnstake() []StakeState {
	return []StakeState{StateStaked}
}

// QualifiedStatesForRelease returns the qualified current states for releasing custody.
// Release only follows the STAKED -> UNSTAKING transition inside the same transaction.
func QualifiedStatesForRelease() []StakeState {
	return []StakeState{StateUnstaking}
}
