package bsc

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTransferCalldata(t *testing.T) {
	to := common.HexToAddress("0x1234567890AbcdEF1234567890aBcdef12345678")
	amount := new(big.Int)
	amount.SetString("1000000000000000000", 10) // 1 token at 18 decimals

	data := transferCalldata(to, amount)

	if len(data) != 68 {
		t.Fatalf("calldata length = %d, want 68", len(data))
	}
	if got := hex.EncodeToString(data[:4]); got != "a9059cbb" {
		t.Errorf("selector = %s, want a9059cbb", got)
	}
	if got := hex.EncodeToString(data[4:36]); got != "0000000000000000000000001234567890abcdef1234567890abcdef12345678" {
		t.Errorf("padded address = %s", got)
	}
	if got := hex.EncodeToString(data[36:]); got != "0000000000000000000000000000000000000000000000000de0b6b3a7640000" {
		t.Errorf("padded amount = %s", got)
	}
}

func TestBalanceOfCalldata(t *testing.T) {
	owner := common.HexToAddress("0x1234567890AbcdEF1234567890aBcdef12345678")

	data := balanceOfCalldata(owner)

	if len(data) != 36 {
		t.Fatalf("calldata length = %d, want 36", len(data))
	}
	if got := hex.EncodeToString(data[:4]); got != "70a08231" {
		t.Errorf("selector = %s, want 70a08231", got)
	}
}
