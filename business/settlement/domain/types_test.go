package domain

import (
	"math/big"
	"testing"
)

func TestReceiptConfirmations(t *testing.T) {
	tests := []struct {
		name  string
		mined uint64
		head  uint64
		want  uint64
	}{
		{"head at mined block", 100, 100, 1},
		{"two blocks deep", 100, 101, 2},
		{"deep", 100, 199, 100},
		{"head behind mined block after reorg", 100, 99, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Receipt{BlockNumber: tt.mined}
			if got := r.Confirmations(tt.head); got != tt.want {
				t.Errorf("Confirmations(%d) with block %d = %d, want %d",
					tt.head, tt.mined, got, tt.want)
			}
		})
	}
}

func TestGasPriceGwei(t *testing.T) {
	price := NewGasPrice(big.NewInt(5_000_000_000)) // 5 gwei
	if got := price.Gwei(); got != 5.0 {
		t.Errorf("Gwei() = %v, want 5.0", got)
	}
}
