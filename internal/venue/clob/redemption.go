package clob

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/weatheragent/core/internal/venue"
	"github.com/weatheragent/core/internal/wallet"
)

// Polygon mainnet addresses for the USDC.e collateral token and the
// Gnosis Conditional Tokens Framework contract Polymarket settles against.
const (
	polygonRPCURL     = "https://polygon-rpc.com"
	usdcCollateralHex = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	ctfContractHex    = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"
)

// Redeemer settles resolved positions on-chain by calling the Conditional
// Tokens Framework's redeemPositions for a binary (YES/NO) condition.
type Redeemer struct {
	wallet  *wallet.Wallet
	rpcURL  string
	ctf     common.Address
	usdc    common.Address
	chainID *big.Int
}

// NewRedeemer builds a Redeemer signing transactions with w, against
// Polygon mainnet (chain id 137).
func NewRedeemer(w *wallet.Wallet) *Redeemer {
	return &Redeemer{
		wallet:  w,
		rpcURL:  polygonRPCURL,
		ctf:     common.HexToAddress(ctfContractHex),
		usdc:    common.HexToAddress(usdcCollateralHex),
		chainID: big.NewInt(137),
	}
}

var redeemPositionsABI = mustParseABI(`[{
	"name": "redeemPositions",
	"type": "function",
	"inputs": [
		{"name": "collateralToken", "type": "address"},
		{"name": "parentCollectionId", "type": "bytes32"},
		{"name": "conditionId", "type": "bytes32"},
		{"name": "indexSets", "type": "uint256[]"}
	],
	"outputs": []
}]`)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("clob: invalid embedded ABI: %v", err))
	}
	return parsed
}

// Redeem submits a redeemPositions transaction for a binary condition
// (index sets {1, 2} covering both outcome slots) and waits for it to be
// mined before reporting success.
func (r *Redeemer) Redeem(ctx context.Context, conditionID string) venue.RedemptionResult {
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("dial polygon rpc: %w", err)}
	}
	defer client.Close()

	conditionHash := common.HexToHash(conditionID)
	var parentCollectionID [32]byte // zero: top-level condition, not nested

	indexSets := []*big.Int{big.NewInt(1), big.NewInt(2)}
	calldata, err := redeemPositionsABI.Pack("redeemPositions", r.usdc, parentCollectionID, conditionHash, indexSets)
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("pack redeemPositions calldata: %w", err)}
	}

	nonce, err := client.PendingNonceAt(ctx, r.wallet.Address())
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("fetch nonce: %w", err)}
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("suggest gas price: %w", err)}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &r.ctf,
		Value:    big.NewInt(0),
		Gas:      300_000,
		GasPrice: gasPrice,
		Data:     calldata,
	})

	signer := types.NewEIP155Signer(r.chainID)
	signedTx, err := types.SignTx(tx, signer, r.wallet.PrivateKey())
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("sign redemption tx: %w", err)}
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("send redemption tx: %w", err)}
	}

	receipt, err := waitMined(ctx, client, signedTx.Hash())
	if err != nil {
		return venue.RedemptionResult{Err: fmt.Errorf("wait for redemption tx: %w", err)}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return venue.RedemptionResult{Err: fmt.Errorf("redemption tx %s reverted", signedTx.Hash())}
	}

	return venue.RedemptionResult{OK: true}
}

// waitMined polls for a transaction receipt until it is available or ctx
// is done.
func waitMined(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
