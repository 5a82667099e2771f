package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/api/apitypes"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// maxBodyBytes bounds request bodies, instructions are a few hundred bytes
const maxBodyBytes = 64 << 10

// StakingService is the part of the staking program served over http
type StakingService interface {
	ProgramID() solana.PublicKey
	ConfigAddress() solana.PublicKey
	Execute(ctx context.Context, ix *program.SignedInstruction) (uint64, error)
	GetConfig(ctx context.Context) (*model.ProgramConfigDocument, error)
	GetStakeRecord(ctx context.Context, owner, asset solana.PublicKey) (*model.StakeRecordDocument, error)
	GetStakeRecordsByOwner(ctx context.Context, owner solana.PublicKey) ([]*model.StakeRecordDocument, error)
	PendingReward(record *model.StakeRecordDocument) uint64
	GetUserAccount(ctx context.Context, owner solana.PublicKey) (*model.UserAccountDocument, error)
	GetAssetOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
	GetVaultEntry(ctx context.Context, asset solana.PublicKey) (*model.VaultEntryDocument, error)
	GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error)
	MintAsset(ctx context.Context, mint, owner solana.PublicKey) error
}

// Pinger reports whether the account store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service    StakingService
	db         Pinger
	enableMint bool
}

func NewHandler(service StakingService, db Pinger, enableMint bool) *Handler {
	return &Handler{service: service, db: db, enableMint: enableMint}
}

type result struct {
	status int
	data   any
}

func ok(data any) *result {
	return &result{status: http.StatusOK, data: data}
}

type handlerFunc func(r *http.Request) (*result, error)

// registerHandler writes the handler result as json. Errors are written with
// the status and code they carry, anything untyped becomes a 500.
func registerHandler(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, res.status, res.data)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		apiErr = types.NewInternalServiceError(err)
	}

	message := apiErr.ErrorCode.String()
	if apiErr.Err != nil {
		message = apiErr.Err.Error()
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Ctx(ctx).Error().Err(err).Msg("request failed")
		// internals are not leaked to callers
		if apiErr.ErrorCode == types.InternalServiceError {
			message = "internal service error"
		}
	}

	writeJSON(ctx, w, apiErr.StatusCode, apitypes.ErrorResponse{
		ErrorCode: apiErr.ErrorCode.String(),
		Message:   message,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write response")
	}
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return types.Wrap(types.ErrBadRequest, "invalid request body: %s", err.Error())
	}
	return nil
}

func publicKeyParam(r *http.Request, name string) (solana.PublicKey, error) {
	value := chi.URLParam(r, name)
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, types.Wrap(types.ErrBadRequest, "invalid %s %q", name, value)
	}
	return key, nil
}

func (h *Handler) HealthCheck(r *http.Request) (*result, error) {
	if err := h.db.Ping(r.Context()); err != nil {
		return nil, types.NewError(
			http.StatusServiceUnavailable, types.InternalServiceError,
			fmt.Errorf("account store unreachable: %w", err),
		)
	}
	return ok(map[string]string{"status": "ok"}), nil
}

// GetProgram returns the program id instructions must be signed for
func (h *Handler) GetProgram(r *http.Request) (*result, error) {
	return ok(apitypes.ProgramResponse{
		ProgramID:     h.service.ProgramID().String(),
		ConfigAddress: h.service.ConfigAddress().String(),
	}), nil
}

func (h *Handler) SubmitInstruction(r *http.Request) (*result, error) {
	var req apitypes.InstructionRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	ix, err := req.SignedInstruction()
	if err != nil {
		return nil, types.Wrap(types.ErrBadRequest, "%s", err.Error())
	}

	amount, err := h.service.Execute(r.Context(), ix)
	if err != nil {
		return nil, err
	}
	return ok(apitypes.InstructionResponse{Amount: amount}), nil
}

func (h *Handler) MintAsset(r *http.Request) (*result, error) {
	var req apitypes.MintAssetRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		return nil, types.Wrap(types.ErrBadRequest, "invalid mint %q", req.Mint)
	}
	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		return nil, types.Wrap(types.ErrBadRequest, "invalid owner %q", req.Owner)
	}

	if err := h.service.MintAsset(r.Context(), mint, owner); err != nil {
		return nil, err
	}
	return &result{
		status: http.StatusCreated,
		data:   apitypes.AssetResponse{Mint: mint.String(), Owner: owner.String()},
	}, nil
}

func (h *Handler) GetConfig(r *http.Request) (*result, error) {
	cfg, err := h.service.GetConfig(r.Context())
	if err != nil {
		return nil, err
	}
	return ok(apitypes.NewConfigResponse(cfg)), nil
}

func (h *Handler) GetStake(r *http.Request) (*result, error) {
	owner, err := publicKeyParam(r, "owner")
	if err != nil {
		return nil, err
	}
	asset, err := publicKeyParam(r, "asset")
	if err != nil {
		return nil, err
	}

	record, err := h.service.GetStakeRecord(r.Context(), owner, asset)
	if err != nil {
		return nil, err
	}
	return ok(apitypes.NewStakeResponse(record, h.service.PendingReward(record))), nil
}

func (h *Handler) GetUser(r *http.Request) (*result, error) {
	owner, err := publicKeyParam(r, "owner")
	if err != nil {
		return nil, err
	}

	user, err := h.service.GetUserAccount(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	records, err := h.service.GetStakeRecordsByOwner(r.Context(), owner)
	if err != nil {
		return nil, err
	}

	stakes := make([]*apitypes.StakeResponse, 0, len(records))
	for _, record := range records {
		stakes = append(stakes, apitypes.NewStakeResponse(record, h.service.PendingReward(record)))
	}
	return ok(apitypes.UserResponse{
		Owner:        user.Owner,
		Address:      user.Address,
		Points:       user.Points,
		AmountStaked: user.AmountStaked,
		Stakes:       stakes,
	}), nil
}

func (h *Handler) GetAsset(r *http.Request) (*result, error) {
	asset, err := publicKeyParam(r, "asset")
	if err != nil {
		return nil, err
	}

	owner, err := h.service.GetAssetOwner(r.Context(), asset)
	if err != nil {
		return nil, err
	}
	resp := apitypes.AssetResponse{Mint: asset.String(), Owner: owner.String()}

	entry, err := h.service.GetVaultEntry(r.Context(), asset)
	switch {
	case err == nil:
		resp.StakeRecord = entry.StakeRecord
	case !errors.Is(err, types.ErrNotStaked):
		return nil, err
	}
	return ok(resp), nil
}

func (h *Handler) GetStats(r *http.Request) (*result, error) {
	stats, err := h.service.GetOverallStats(r.Context())
	if err != nil {
		return nil, err
	}
	return ok(apitypes.NewStatsResponse(stats)), nil
}
