package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDBSC        = 56
	ChainIDBSCTestnet = 97
	ChainIDEthereum   = 1
	ChainIDFiat       = 0 // Off-chain / fiat
)

// Well-known BEP-20 token addresses on BSC mainnet
var (
	AddrUSDTBSC = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	AddrUSDCBSC = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	AddrBUSDBSC = common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56")
	AddrWBNBBSC = common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
)

// Well-known AssetIDs
var (
	IDBSCBNB  = NewNativeAssetID(ChainIDBSC)
	IDBSCUSDT = NewTokenAssetID(ChainIDBSC, AddrUSDTBSC)
	IDBSCUSDC = NewTokenAssetID(ChainIDBSC, AddrUSDCBSC)
	IDBSCBUSD = NewTokenAssetID(ChainIDBSC, AddrBUSDBSC)
	IDBSCWBNB = NewTokenAssetID(ChainIDBSC, AddrWBNBBSC)
)

// Well-known Assets (pre-created instances). BEP-20 stables carry 18
// decimals on BSC, unlike their 6-decimal Ethereum counterparts.
var (
	BNB  = NewAssetWithName(IDBSCBNB, "BNB", "BNB", 18)
	USDT = NewAssetWithName(IDBSCUSDT, "USDT", "Tether USD", 18)
	USDC = NewAssetWithName(IDBSCUSDC, "USDC", "USD Coin", 18)
	BUSD = NewAssetWithName(IDBSCBUSD, "BUSD", "Binance USD", 18)
	WBNB = NewAssetWithName(IDBSCWBNB, "WBNB", "Wrapped BNB", 18)
)

// MustNewToken creates a new ERC20 token asset with the given parameters.
// This is a convenience function for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}

// MustNewNative creates a new native coin asset.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	id := NewNativeAssetID(chainID)
	return NewAssetWithName(id, symbol, name, decimals)
}
