package dex

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexstream/internal/model"
)

// Event names emitted by the PoolManager.
const (
	EventSwap            = "Swap"
	EventModifyLiquidity = "ModifyLiquidity"
)

// Decoder decodes PoolManager pool events.
type Decoder struct {
	managerABI  abi.ABI
	topicToName map[common.Hash]string
}

// NewDecoder builds a PoolManager event decoder.
func NewDecoder() (*Decoder, error) {
	managerABI, err := PoolManagerABI()
	if err != nil {
		return nil, err
	}

	return &Decoder{
		managerABI: managerABI,
		topicToName: map[common.Hash]string{
			managerABI.Events[EventSwap].ID:            EventSwap,
			managerABI.Events[EventModifyLiquidity].ID: EventModifyLiquidity,
		},
	}, nil
}

// SwapTopic returns the Swap event signature hash.
func (d *Decoder) SwapTopic() common.Hash {
	return d.managerABI.Events[EventSwap].ID
}

// ModifyLiquidityTopic returns the ModifyLiquidity event signature hash.
func (d *Decoder) ModifyLiquidityTopic() common.Hash {
	return d.managerABI.Events[EventModifyLiquidity].ID
}

// EventName resolves a topic0 to a supported event name.
func (d *Decoder) EventName(log types.Log) (string, bool) {
	if len(log.Topics) == 0 {
		return "", false
	}
	name, ok := d.topicToName[log.Topics[0]]
	return name, ok
}

// Both events carry (id, sender) as indexed topics 1 and 2.
func poolAndSender(log types.Log) (string, string, error) {
	if len(log.Topics) != 3 {
		return "", "", fmt.Errorf("expected 3 topics, got %d", len(log.Topics))
	}
	poolID := log.Topics[1].Hex()
	sender := common.BytesToAddress(log.Topics[2].Bytes()).Hex()
	return poolID, sender, nil
}

// DecodeSwap converts a Swap log into a typed event.
func (d *Decoder) DecodeSwap(log types.Log, timestamp time.Time) (*model.SwapEvent, error) {
	poolID, sender, err := poolAndSender(log)
	if err != nil {
		return nil, err
	}

	event := d.managerABI.Events[EventSwap]
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 6 {
		return nil, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return nil, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return nil, err
	}
	feeInt, err := asBigInt(values[5])
	if err != nil {
		return nil, err
	}
	if !feeInt.IsUint64() || feeInt.Uint64() >= 1<<24 {
		return nil, fmt.Errorf("fee out of range: %s", feeInt)
	}

	return &model.SwapEvent{
		PoolID:       poolID,
		Sender:       sender,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         tick,
		Fee:          uint32(feeInt.Uint64()),
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash.Hex(),
		LogIndex:     uint64(log.Index),
		Timestamp:    timestamp,
	}, nil
}

// DecodeModifyLiquidity converts a ModifyLiquidity log into a typed event.
func (d *Decoder) DecodeModifyLiquidity(log types.Log, timestamp time.Time) (*model.LiquidityModifiedEvent, error) {
	poolID, sender, err := poolAndSender(log)
	if err != nil {
		return nil, err
	}

	event := d.managerABI.Events[EventModifyLiquidity]
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack modify liquidity: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected modify liquidity values: %d", len(values))
	}

	tickLowerInt, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	tickLower, err := int24FromBig(tickLowerInt)
	if err != nil {
		return nil, err
	}
	tickUpperInt, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	tickUpper, err := int24FromBig(tickUpperInt)
	if err != nil {
		return nil, err
	}
	liquidityDelta, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	salt, err := asBytes32Hex(values[3])
	if err != nil {
		return nil, err
	}

	return &model.LiquidityModifiedEvent{
		PoolID:         poolID,
		Sender:         sender,
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: liquidityDelta,
		Salt:           salt,
		BlockNumber:    log.BlockNumber,
		TxHash:         log.TxHash.Hex(),
		LogIndex:       uint64(log.Index),
		Timestamp:      timestamp,
	}, nil
}

const maxInt24 = 1<<23 - 1
const minInt24 = -1 << 23

func int24FromBig(value *big.Int) (int32, error) {
	if !value.IsInt64() {
		return 0, fmt.Errorf("tick out of range: %s", value)
	}
	v := value.Int64()
	if v < minInt24 || v > maxInt24 {
		return 0, fmt.Errorf("tick out of range: %d", v)
	}
	return int32(v), nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asBytes32Hex(value interface{}) (string, error) {
	switch v := value.(type) {
	case [32]byte:
		return common.BytesToHash(v[:]).Hex(), nil
	case common.Hash:
		return v.Hex(), nil
	default:
		return "", fmt.Errorf("unsupported bytes32 type %T", value)
	}
}
