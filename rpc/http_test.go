package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"stfix/core"
	"stfix/crypto"
	"stfix/native/stfix"
	"stfix/storage"
)

const testToken = "test-token"

func newTestServer(t *testing.T, now int64) (*Server, *core.Node, crypto.Address) {
	t.Helper()
	t.Setenv("STFIX_RPC_TOKEN", testToken)
	node := core.NewNode(storage.NewMemDB())
	node.SetNowFunc(func() int64 { return now })
	admin := rpcAddr(0x01)
	params := stfix.Params{
		YieldRate30:     500,
		YieldRate90:     1_500,
		CooldownSeconds: 0,
		PenaltyRateBps:  1_000,
	}
	if _, err := node.Initialize(admin, params); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return NewServer(node), node, admin
}

func rpcAddr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.STFIXPrefix, raw)
}

func call(t *testing.T, s *Server, authed bool, method string, params ...interface{}) *RPCResponse {
	t.Helper()
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal param: %v", err)
		}
		rawParams = append(rawParams, encoded)
	}
	payload, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	recorder := httptest.NewRecorder()
	s.handle(recorder, req)

	resp := &RPCResponse{}
	if err := json.NewDecoder(recorder.Body).Decode(resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeResult(t *testing.T, resp *RPCResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
	encoded, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-encode result: %v", err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	s, _, _ := newTestServer(t, 1_000)
	resp := call(t, s, false, "stfix_doesNotExist")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestMutatingMethodsRequireAuth(t *testing.T) {
	s, node, _ := newTestServer(t, 1_000)
	staker := rpcAddr(0x10)
	if err := node.Credit(staker, bigInt(t, "1000000")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	resp := call(t, s, false, "stfix_stake", stakeParams{
		Caller:   staker.String(),
		Amount:   "1000000",
		TermDays: 30,
		Nonce:    1,
	})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
}

func TestStakeAndQueryFlow(t *testing.T) {
	s, node, _ := newTestServer(t, 1_000)
	staker := rpcAddr(0x10)
	if err := node.Credit(staker, bigInt(t, "1000000")); err != nil {
		t.Fatalf("credit: %v", err)
	}

	resp := call(t, s, true, "stfix_stake", stakeParams{
		Caller:   staker.String(),
		Amount:   "1000000",
		TermDays: 30,
		Nonce:    1,
		Memo:     "via rpc",
	})
	var pos positionJSON
	decodeResult(t, resp, &pos)
	if pos.Amount != "1000000" || pos.TermDays != 30 || pos.Nonce != 1 || pos.Closed {
		t.Fatalf("unexpected position payload: %+v", pos)
	}
	if pos.UnlockTime != 1_000+30*86_400 {
		t.Fatalf("unexpected unlock time %d", pos.UnlockTime)
	}

	resp = call(t, s, false, "stfix_getPosition", positionQueryParams{Owner: staker.String(), Nonce: 1})
	var queried positionJSON
	decodeResult(t, resp, &queried)
	if queried.Memo != "via rpc" {
		t.Fatalf("expected memo to round trip, got %q", queried.Memo)
	}

	resp = call(t, s, false, "stfix_getVaults")
	var vaults vaultsJSON
	decodeResult(t, resp, &vaults)
	if vaults.PrincipalVault != "1000000" || vaults.ReceiptSupply != "1000000" {
		t.Fatalf("unexpected vault payload: %+v", vaults)
	}

	resp = call(t, s, false, "stfix_getBalance", staker.String())
	var balance balanceJSON
	decodeResult(t, resp, &balance)
	if balance.Balance != "0" || balance.BalanceSTFIX != "1000000" {
		t.Fatalf("unexpected balance payload: %+v", balance)
	}

	resp = call(t, s, false, "stfix_recentEvents")
	var evts []eventJSON
	decodeResult(t, resp, &evts)
	var sawStaked bool
	for _, evt := range evts {
		if evt.Type == stfix.EventTypeStaked {
			sawStaked = true
		}
	}
	if !sawStaked {
		t.Fatalf("expected a staked event in the feed: %+v", evts)
	}
}

func TestRedeemBeforeUnlockMapsToConflict(t *testing.T) {
	s, node, _ := newTestServer(t, 1_000)
	staker := rpcAddr(0x10)
	if err := node.Credit(staker, bigInt(t, "1000000")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	resp := call(t, s, true, "stfix_stake", stakeParams{
		Caller:   staker.String(),
		Amount:   "1000000",
		TermDays: 30,
		Nonce:    1,
	})
	if resp.Error != nil {
		t.Fatalf("stake: %+v", resp.Error)
	}

	resp = call(t, s, true, "stfix_redeem", positionRefParams{Caller: staker.String(), Nonce: 1})
	if resp.Error == nil || resp.Error.Code != codeStfixConflict {
		t.Fatalf("expected conflict for an immature redemption, got %+v", resp.Error)
	}
}

func TestGetPositionNotFound(t *testing.T) {
	s, _, _ := newTestServer(t, 1_000)
	resp := call(t, s, false, "stfix_getPosition", positionQueryParams{Owner: rpcAddr(0x10).String(), Nonce: 42})
	if resp.Error == nil || resp.Error.Code != codeStfixNotFound {
		t.Fatalf("expected not found, got %+v", resp.Error)
	}
}

func TestInvalidParamsRejected(t *testing.T) {
	s, _, _ := newTestServer(t, 1_000)

	resp := call(t, s, true, "stfix_stake", stakeParams{Caller: "not-an-address", Amount: "100", TermDays: 30, Nonce: 1})
	if resp.Error == nil || resp.Error.Code != codeStfixInvalidParams {
		t.Fatalf("expected invalid params for a bad address, got %+v", resp.Error)
	}

	resp = call(t, s, true, "stfix_stake", stakeParams{Caller: rpcAddr(0x10).String(), Amount: "-5", TermDays: 30, Nonce: 1})
	if resp.Error == nil || resp.Error.Code != codeStfixInvalidParams {
		t.Fatalf("expected invalid params for a negative amount, got %+v", resp.Error)
	}

	resp = call(t, s, true, "stfix_stake", stakeParams{Caller: rpcAddr(0x10).String(), Amount: "100", TermDays: 45, Nonce: 1})
	if resp.Error == nil || resp.Error.Code != codeStfixInvalidParams {
		t.Fatalf("expected invalid params for an unsupported term, got %+v", resp.Error)
	}
}

func TestWhitelistAdministration(t *testing.T) {
	s, _, admin := newTestServer(t, 1_000)
	user := rpcAddr(0x33)

	resp := call(t, s, true, "stfix_addToWhitelist", whitelistParams{Caller: admin.String(), User: user.String()})
	if resp.Error != nil {
		t.Fatalf("whitelist add: %+v", resp.Error)
	}

	resp = call(t, s, false, "stfix_getConfig")
	var cfg configJSON
	decodeResult(t, resp, &cfg)
	if len(cfg.Whitelist) != 1 || cfg.Whitelist[0] != user.String() {
		t.Fatalf("expected whitelisted user in config, got %+v", cfg.Whitelist)
	}

	resp = call(t, s, true, "stfix_addToWhitelist", whitelistParams{Caller: user.String(), User: admin.String()})
	if resp.Error == nil || resp.Error.Code != codeStfixForbidden {
		t.Fatalf("expected forbidden for non-admin caller, got %+v", resp.Error)
	}

	resp = call(t, s, true, "stfix_removeFromWhitelist", whitelistParams{Caller: admin.String(), User: user.String()})
	if resp.Error != nil {
		t.Fatalf("whitelist remove: %+v", resp.Error)
	}
}

func bigInt(t *testing.T, value string) *big.Int {
	t.Helper()
	parsed, err := parsePositiveBigInt(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}
