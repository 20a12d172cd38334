package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"geodrop/internal/app/api/auth"
	"geodrop/internal/domain/airdrop"
)

type initializeTreasuryRequest struct {
	FundAmount uint64 `json:"fund_amount"`
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type createAirdropRequest struct {
	ID              uint64 `json:"id"`
	Latitude        int64  `json:"latitude"`
	Longitude       int64  `json:"longitude"`
	RewardAmount    uint64 `json:"reward_amount"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
	MaxClaims       uint16 `json:"max_claims"`
	Rarity          uint8  `json:"rarity"`
}

type faucetRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

type treasuryResponse struct {
	Authority      string `json:"authority"`
	TotalDeposited uint64 `json:"total_deposited"`
	Held           uint64 `json:"held"`
	Reserved       uint64 `json:"reserved"`
	Available      uint64 `json:"available"`
}

type airdropResponse struct {
	ID              uint64 `json:"id"`
	Latitude        int64  `json:"latitude"`
	Longitude       int64  `json:"longitude"`
	RewardAmount    uint64 `json:"reward_amount"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
	MaxClaims       uint16 `json:"max_claims"`
	ClaimsCount     uint16 `json:"claims_count"`
	Rarity          uint8  `json:"rarity"`
	RarityName      string `json:"rarity_name"`
	Active          bool   `json:"active"`
	Creator         string `json:"creator"`
	Status          string `json:"status"`
}

type receiptResponse struct {
	Airdrop   string `json:"airdrop"`
	Claimer   string `json:"claimer"`
	ClaimedAt int64  `json:"claimed_at"`
}

type rarityResponse struct {
	Tier          uint8  `json:"tier"`
	Name          string `json:"name"`
	DefaultReward uint64 `json:"default_reward"`
}

func toAirdropResponse(a airdrop.Airdrop, now int64) airdropResponse {
	return airdropResponse{
		ID:              a.ID,
		Latitude:        a.Latitude,
		Longitude:       a.Longitude,
		RewardAmount:    a.RewardAmount,
		ExpiryTimestamp: a.ExpiryTimestamp,
		MaxClaims:       a.MaxClaims,
		ClaimsCount:     a.ClaimsCount,
		Rarity:          uint8(a.Rarity),
		RarityName:      a.Rarity.String(),
		Active:          a.Active,
		Creator:         a.Creator.String(),
		Status:          string(a.Status(now)),
	}
}

func toReceiptResponse(r airdrop.ClaimReceipt) receiptResponse {
	return receiptResponse{Airdrop: r.Airdrop.String(), Claimer: r.Claimer.String(), ClaimedAt: r.ClaimedAt}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid airdrop id")
		return 0, false
	}
	return id, true
}

func parseKey(c *gin.Context, param string) (solana.PublicKey, bool) {
	pub, err := solana.PublicKeyFromBase58(c.Param(param))
	if err != nil {
		badRequest(c, "invalid "+param)
		return solana.PublicKey{}, false
	}
	return pub, true
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func (h *handler) initializeTreasury(c *gin.Context) {
	caller, _ := auth.Identity(c)
	var req initializeTreasuryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	t, err := h.svc.InitializeTreasury(c.Request.Context(), caller, req.FundAmount)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c, airdrop.TreasuryInitializedEvent(t, time.Unix(h.svc.Now(), 0)))
	c.JSON(http.StatusCreated, gin.H{"authority": t.Authority.String(), "total_deposited": t.TotalDeposited})
}

func (h *handler) deposit(c *gin.Context) {
	caller, _ := auth.Identity(c)
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.svc.Deposit(c.Request.Context(), caller, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Amount > 0 {
		h.publish(c, airdrop.DepositEvent(caller, req.Amount, time.Unix(h.svc.Now(), 0)))
	}
	c.JSON(http.StatusOK, gin.H{"authority": t.Authority.String(), "total_deposited": t.TotalDeposited})
}

func (h *handler) getTreasury(c *gin.Context) {
	t, bal, err := h.svc.Treasury(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, treasuryResponse{
		Authority:      t.Authority.String(),
		TotalDeposited: t.TotalDeposited,
		Held:           bal.Held,
		Reserved:       bal.Reserved,
		Available:      bal.Available,
	})
}

func (h *handler) createAirdrop(c *gin.Context) {
	caller, _ := auth.Identity(c)
	var req createAirdropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.CreateAirdrop(c.Request.Context(), caller, airdrop.CreateParams{
		ID:              req.ID,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		RewardAmount:    req.RewardAmount,
		ExpiryTimestamp: req.ExpiryTimestamp,
		MaxClaims:       req.MaxClaims,
		Rarity:          req.Rarity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	now := h.svc.Now()
	h.publish(c, airdrop.AirdropCreatedEvent(a, time.Unix(now, 0)))
	c.JSON(http.StatusCreated, toAirdropResponse(a, now))
}

func (h *handler) getAirdrop(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.svc.Airdrop(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAirdropResponse(a, h.svc.Now()))
}

func (h *handler) claimAirdrop(c *gin.Context) {
	caller, _ := auth.Identity(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.svc.ClaimAirdrop(c.Request.Context(), id, caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c, airdrop.ClaimedEvent(result))
	c.JSON(http.StatusOK, gin.H{
		"receipt": toReceiptResponse(result.Receipt),
		"airdrop": toAirdropResponse(result.Airdrop, result.Receipt.ClaimedAt),
		"amount":  result.Airdrop.RewardAmount,
	})
}

func (h *handler) getReceipt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	claimer, ok := parseKey(c, "claimer")
	if !ok {
		return
	}
	r, err := h.svc.Receipt(c.Request.Context(), id, claimer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(r))
}

func (h *handler) getWallet(c *gin.Context) {
	owner, ok := parseKey(c, "address")
	if !ok {
		return
	}
	balance, err := h.svc.WalletBalance(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": owner.String(), "lamports": balance})
}

func (h *handler) listRarities(c *gin.Context) {
	out := make([]rarityResponse, 0, len(airdrop.Rarities()))
	for _, r := range airdrop.Rarities() {
		reward, _ := r.DefaultReward()
		out = append(out, rarityResponse{Tier: uint8(r), Name: r.String(), DefaultReward: reward})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) faucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	owner, err := solana.PublicKeyFromBase58(req.Address)
	if err != nil {
		badRequest(c, "invalid address")
		return
	}
	if err := h.svc.Fund(c.Request.Context(), owner, req.Amount); err != nil {
		h.fail(c, err)
		return
	}
	balance, err := h.svc.WalletBalance(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": owner.String(), "lamports": balance})
}

type auditEntryResponse struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Actor       string    `json:"actor"`
	Amount      uint64    `json:"amount"`
	ClaimsCount uint16    `json:"claims_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (h *handler) listAudit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		badRequest(c, "limit must be between 1 and 1000")
		return
	}
	entries, err := h.audit.ListAuditLog(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			EventID:     e.EventID,
			EventType:   e.EventType,
			Actor:       e.Actor,
			Amount:      e.Amount,
			ClaimsCount: e.ClaimsCount,
			OccurredAt:  e.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
