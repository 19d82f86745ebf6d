package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"stfix/core/types"
	"stfix/crypto"
	nativecommon "stfix/native/common"
	"stfix/native/stfix"
)

const (
	codeStfixInvalidParams = -32041
	codeStfixNotFound      = -32042
	codeStfixForbidden     = -32043
	codeStfixConflict      = -32044
	codeStfixInternal      = -32045
)

type stakeParams struct {
	Caller   string `json:"caller"`
	Amount   string `json:"amount"`
	TermDays int64  `json:"termDays"`
	Nonce    uint64 `json:"nonce"`
	Memo     string `json:"memo,omitempty"`
}

type positionRefParams struct {
	Caller string `json:"caller"`
	Nonce  uint64 `json:"nonce"`
}

type extendLockParams struct {
	Caller      string `json:"caller"`
	Nonce       uint64 `json:"nonce"`
	NewTermDays int64  `json:"newTermDays"`
}

type topUpYieldParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type whitelistParams struct {
	Caller string `json:"caller"`
	User   string `json:"user"`
}

type positionQueryParams struct {
	Owner string `json:"owner"`
	Nonce uint64 `json:"nonce"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type positionJSON struct {
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	DepositTime int64  `json:"depositTime"`
	UnlockTime  int64  `json:"unlockTime"`
	TermDays    int64  `json:"termDays"`
	Nonce       uint64 `json:"nonce"`
	Memo        string `json:"memo,omitempty"`
	Closed      bool   `json:"closed"`
}

type configJSON struct {
	Admin             string   `json:"admin"`
	ReceiptSymbol     string   `json:"receiptSymbol"`
	PrincipalVault    string   `json:"principalVault"`
	YieldVault        string   `json:"yieldVault"`
	YieldRate30       uint64   `json:"yieldRate30"`
	YieldRate90       uint64   `json:"yieldRate90"`
	CooldownSeconds   int64    `json:"cooldownSeconds"`
	PenaltyRateBps    uint64   `json:"penaltyRateBps"`
	WhitelistOnly     bool     `json:"whitelistOnly"`
	Whitelist         []string `json:"whitelist"`
	TotalInterestPaid string   `json:"totalInterestPaid"`
}

type redeemResult struct {
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
}

type earlyRedeemResult struct {
	Payout  string `json:"payout"`
	Penalty string `json:"penalty"`
}

type extendLockResult struct {
	Position positionJSON `json:"position"`
	Accrued  string       `json:"accrued"`
}

type userStateJSON struct {
	Owner         string `json:"owner"`
	LastStakeTime int64  `json:"lastStakeTime"`
}

type vaultsJSON struct {
	PrincipalVault string `json:"principalVault"`
	YieldVault     string `json:"yieldVault"`
	ReceiptSupply  string `json:"receiptSupply"`
}

type balanceJSON struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	BalanceSTFIX string `json:"balanceSTFIX"`
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func parseAddressParam(value, field string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("%s required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr, nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseTermDays(days int64) (stfix.LockTerm, error) {
	term, err := stfix.TermFromDays(days)
	if err != nil {
		return 0, fmt.Errorf("termDays must be 30 or 90")
	}
	return term, nil
}

func positionToJSON(pos *stfix.StakePosition) positionJSON {
	amount := "0"
	if pos.Amount != nil {
		amount = pos.Amount.String()
	}
	return positionJSON{
		Owner:       pos.Owner.String(),
		Amount:      amount,
		DepositTime: pos.DepositTime,
		UnlockTime:  pos.UnlockTime(),
		TermDays:    pos.Term.Days(),
		Nonce:       pos.Nonce,
		Memo:        pos.Memo,
		Closed:      pos.Closed(),
	}
}

func writeStfixError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeStfixInternal
	message := "internal_error"
	data := err.Error()
	switch {
	case errors.Is(err, stfix.ErrInvalidAmount) || errors.Is(err, stfix.ErrInvalidTerm) || errors.Is(err, stfix.ErrMemoTooLong):
		status = http.StatusBadRequest
		code = codeStfixInvalidParams
		message = "invalid_params"
	case errors.Is(err, stfix.ErrPositionNotFound) || errors.Is(err, stfix.ErrNotInitialized):
		status = http.StatusNotFound
		code = codeStfixNotFound
		message = "not_found"
	case errors.Is(err, stfix.ErrUnauthorized) || errors.Is(err, stfix.ErrNotWhitelisted):
		status = http.StatusForbidden
		code = codeStfixForbidden
		message = "forbidden"
	case errors.Is(err, stfix.ErrLockPeriodNotCompleted) ||
		errors.Is(err, stfix.ErrReentrancy) ||
		errors.Is(err, stfix.ErrRateLimited) ||
		errors.Is(err, stfix.ErrPositionExists) ||
		errors.Is(err, stfix.ErrPositionClosed) ||
		errors.Is(err, stfix.ErrWhitelistFull) ||
		errors.Is(err, stfix.ErrAlreadyInitialized) ||
		errors.Is(err, stfix.ErrInsufficientBalance) ||
		errors.Is(err, stfix.ErrInsufficientYieldVaultFunds) ||
		errors.Is(err, stfix.ErrInsufficientPrincipalFunds) ||
		errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusConflict
		code = codeStfixConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, data)
}

func (s *Server) handleStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params stakeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	term, err := parseTermDays(params.TermDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	pos, err := s.node.Stake(caller, amount, term, params.Nonce, params.Memo)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, positionToJSON(pos))
}

func (s *Server) handleRedeem(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, nonce, ok := s.decodePositionRef(w, req)
	if !ok {
		return
	}
	principal, interest, err := s.node.Redeem(caller, nonce)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, redeemResult{Principal: principal.String(), Interest: interest.String()})
}

func (s *Server) handleEarlyRedeem(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, nonce, ok := s.decodePositionRef(w, req)
	if !ok {
		return
	}
	payout, penalty, err := s.node.EarlyRedeem(caller, nonce)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, earlyRedeemResult{Payout: payout.String(), Penalty: penalty.String()})
}

func (s *Server) decodePositionRef(w http.ResponseWriter, req *RPCRequest) (crypto.Address, uint64, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return crypto.Address{}, 0, false
	}
	var params positionRefParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, 0, false
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, 0, false
	}
	return caller, params.Nonce, true
}

func (s *Server) handleExtendLock(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params extendLockParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	newTerm, err := parseTermDays(params.NewTermDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	pos, accrued, err := s.node.ExtendLock(caller, params.Nonce, newTerm)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, extendLockResult{Position: positionToJSON(pos), Accrued: accrued.String()})
}

func (s *Server) handleTopUpYield(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params topUpYieldParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.TopUpYield(caller, amount); err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) decodeWhitelistParams(w http.ResponseWriter, req *RPCRequest) (crypto.Address, crypto.Address, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return crypto.Address{}, crypto.Address{}, false
	}
	var params whitelistParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, crypto.Address{}, false
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, crypto.Address{}, false
	}
	user, err := parseAddressParam(params.User, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, crypto.Address{}, false
	}
	return caller, user, true
}

func (s *Server) handleAddToWhitelist(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, user, ok := s.decodeWhitelistParams(w, req)
	if !ok {
		return
	}
	if err := s.node.AddToWhitelist(caller, user); err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleRemoveFromWhitelist(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, user, ok := s.decodeWhitelistParams(w, req)
	if !ok {
		return
	}
	if err := s.node.RemoveFromWhitelist(caller, user); err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "no parameters expected")
		return
	}
	cfg, err := s.node.Config()
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	whitelist := make([]string, len(cfg.Whitelist))
	for i, member := range cfg.Whitelist {
		whitelist[i] = member.String()
	}
	writeResult(w, req.ID, configJSON{
		Admin:             cfg.Admin.String(),
		ReceiptSymbol:     cfg.ReceiptSymbol,
		PrincipalVault:    cfg.PrincipalVault.String(),
		YieldVault:        cfg.YieldVault.String(),
		YieldRate30:       cfg.YieldRate30,
		YieldRate90:       cfg.YieldRate90,
		CooldownSeconds:   cfg.CooldownSeconds,
		PenaltyRateBps:    cfg.PenaltyRateBps,
		WhitelistOnly:     cfg.WhitelistOnly,
		Whitelist:         whitelist,
		TotalInterestPaid: cfg.TotalInterestPaid.String(),
	})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params positionQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddressParam(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	pos, err := s.node.Position(owner, params.Nonce)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, positionToJSON(pos))
}

func (s *Server) handleGetUserState(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params ownerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddressParam(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	state, err := s.node.UserState(owner)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userStateJSON{Owner: state.Owner.String(), LastStakeTime: state.LastStakeTime})
}

func (s *Server) handleGetVaults(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "no parameters expected")
		return
	}
	principal, yield, err := s.node.VaultBalances()
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	supply, err := s.node.ReceiptSupply()
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, vaultsJSON{
		PrincipalVault: principal.String(),
		YieldVault:     yield.String(),
		ReceiptSupply:  supply.String(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "address parameter required")
		return
	}
	var addrStr string
	if err := json.Unmarshal(req.Params[0], &addrStr); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddressParam(addrStr, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, receipt, err := s.node.Account(addr)
	if err != nil {
		writeStfixError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceJSON{Address: addr.String(), Balance: balance.String(), BalanceSTFIX: receipt.String()})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeStfixInvalidParams, "invalid_params", "no parameters expected")
		return
	}
	recent := s.node.RecentEvents()
	out := make([]eventJSON, 0, len(recent))
	for _, evt := range recent {
		carrier, ok := evt.(interface{ Event() *types.Event })
		if !ok {
			out = append(out, eventJSON{Type: evt.EventType()})
			continue
		}
		payload := carrier.Event()
		if payload == nil {
			continue
		}
		attrs := make(map[string]string, len(payload.Attributes))
		for k, v := range payload.Attributes {
			attrs[k] = v
		}
		out = append(out, eventJSON{Type: payload.Type, Attributes: attrs})
	}
	writeResult(w, req.ID, out)
}
