// Package apitypes holds the json bodies exchanged between the api server and its clients
package apitypes

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/program"
)

type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type ProgramResponse struct {
	ProgramID     string `json:"programId"`
	ConfigAddress string `json:"configAddress"`
}

// InstructionRequest is a signed instruction. Data is base64, Signer and
// Signature are base58.
type InstructionRequest struct {
	Data      string `json:"data"`
	Nonce     uint64 `json:"nonce"`
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

func NewInstructionRequest(ix *program.SignedInstruction) *InstructionRequest {
	return &InstructionRequest{
		Data:      base64.StdEncoding.EncodeToString(ix.Data),
		Nonce:     ix.Nonce,
		Signer:    ix.Signer.String(),
		Signature: ix.Signature.String(),
	}
}

func (r *InstructionRequest) SignedInstruction() (*program.SignedInstruction, error) {
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid instruction data: %w", err)
	}
	signer, err := solana.PublicKeyFromBase58(r.Signer)
	if err != nil {
		return nil, fmt.Errorf("invalid signer: %w", err)
	}
	signature, err := solana.SignatureFromBase58(r.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return &program.SignedInstruction{
		Data:      data,
		Nonce:     r.Nonce,
		Signer:    signer,
		Signature: signature,
	}, nil
}

type InstructionResponse struct {
	Amount uint64 `json:"amount"`
}

type MintAssetRequest struct {
	Mint  string `json:"mint"`
	Owner string `json:"owner"`
}

type AssetResponse struct {
	Mint  string `json:"mint"`
	Owner string `json:"owner"`
	// StakeRecord is set while the asset is in custody
	StakeRecord string `json:"stakeRecord,omitempty"`
}

type ConfigResponse struct {
	Address          string `json:"address"`
	Authority        string `json:"authority"`
	RewardRate       uint64 `json:"rewardRate"`
	MinStakeDuration int64  `json:"minStakeDuration"`
	MaxStake         uint32 `json:"maxStake"`
	UpdatedAt        int64  `json:"updatedAt"`
}

func NewConfigResponse(doc *model.ProgramConfigDocument) *ConfigResponse {
	return &ConfigResponse{
		Address:          doc.Address,
		Authority:        doc.Authority,
		RewardRate:       doc.RewardRate,
		MinStakeDuration: doc.MinStakeDuration,
		MaxStake:         doc.MaxStake,
		UpdatedAt:        doc.UpdatedAt,
	}
}

type StakeResponse struct {
	Address        string `json:"address"`
	Owner          string `json:"owner"`
	Asset          string `json:"asset"`
	State          string `json:"state"`
	StakedAt       int64  `json:"stakedAt"`
	LastCheckpoint int64  `json:"lastCheckpoint"`
	RewardRate     uint64 `json:"rewardRate"`
	AccruedReward  uint64 `json:"accruedReward"`
	// PendingReward is what a claim would pay at the time of the response
	PendingReward uint64 `json:"pendingReward"`
}

func NewStakeResponse(doc *model.StakeRecordDocument, pending uint64) *StakeResponse {
	return &StakeResponse{
		Address:        doc.Address,
		Owner:          doc.Owner,
		Asset:          doc.Asset,
		State:          doc.State.String(),
		StakedAt:       doc.StakedAt,
		LastCheckpoint: doc.LastCheckpoint,
		RewardRate:     doc.RewardRate,
		AccruedReward:  doc.AccruedReward,
		PendingReward:  pending,
	}
}

type UserResponse struct {
	Owner        string           `json:"owner"`
	Address      string           `json:"address"`
	Points       uint64           `json:"points"`
	AmountStaked uint32           `json:"amountStaked"`
	Stakes       []*StakeResponse `json:"stakes"`
}

type StatsResponse struct {
	ActiveStakes    uint64 `json:"activeStakes"`
	UnclaimedReward uint64 `json:"unclaimedReward"`
	ClaimedPoints   uint64 `json:"claimedPoints"`
	LastUpdated     int64  `json:"lastUpdated"`
}

func NewStatsResponse(doc *model.OverallStatsDocument) *StatsResponse {
	return &StatsResponse{
		ActiveStakes:    doc.ActiveStakes,
		UnclaimedReward: doc.UnclaimedReward,
		ClaimedPoints:   doc.ClaimedPoints,
		LastUpdated:     doc.LastUpdated,
	}
}
