package asset_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 BNB = 1e18 wei
	oneBNB := asset.NewAmount(asset.BNB, big.NewInt(1e18))

	if oneBNB.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneBNB.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneBNB.String() != "1 BNB" {
		t.Errorf("expected '1 BNB', got '%s'", oneBNB.String())
	}
}

func TestAmount_Add(t *testing.T) {
	one := asset.NewAmount(asset.USDT, big.NewInt(1e18))
	two := asset.NewAmount(asset.USDT, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneBNB := asset.NewAmount(asset.BNB, big.NewInt(1e18))
	oneUSDT := asset.NewAmount(asset.USDT, big.NewInt(1e18))

	if _, err := oneBNB.Add(oneUSDT); err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_Sub(t *testing.T) {
	three := asset.NewAmount(asset.USDT, big.NewInt(3e18))
	one := asset.NewAmount(asset.USDT, big.NewInt(1e18))

	diff, err := three.Sub(one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !diff.ToDecimal().Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2, got %s", diff.ToDecimal().String())
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	one := asset.NewAmount(asset.USDT, big.NewInt(1e18))
	two := asset.NewAmount(asset.USDT, big.NewInt(2e18))

	if _, err := one.Sub(two); err == nil {
		t.Error("expected error for negative result")
	}
}

func TestParseDecimal(t *testing.T) {
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.USDT, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := new(big.Int)
	expected.SetString("1500000000000000000", 10)

	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// An 8-decimal token cannot represent a 9-decimal figure.
	tok := asset.MustNewToken(asset.ChainIDBSC, asset.AddrWBNBBSC, "TOK8", "Token", 8)
	d := decimal.RequireFromString("1.123456789")
	if _, err := asset.ParseDecimal(tok, d); err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestAssetID_Identity(t *testing.T) {
	a := asset.NewTokenAssetID(asset.ChainIDBSC, asset.AddrUSDTBSC)
	b := asset.NewTokenAssetID(asset.ChainIDBSC, asset.AddrUSDTBSC)

	if !a.Equals(b) {
		t.Error("same asset should have equal IDs")
	}

	// Same address on a different chain is a different asset.
	testnet := asset.NewTokenAssetID(asset.ChainIDBSCTestnet, asset.AddrUSDTBSC)
	if a.Equals(testnet) {
		t.Error("different chains should have different IDs")
	}
}
