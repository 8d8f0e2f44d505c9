package substrate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"tao_dividends_api/internal/domain"
	apierr "tao_dividends_api/internal/errors"
	"tao_dividends_api/internal/metrics"
	"tao_dividends_api/internal/port"
)

// DividendQuery reads SubtensorModule.TaoDividendsPerSubnet.
type DividendQuery struct {
	ss58Prefix uint8
}

func NewDividendQuery(ss58Prefix uint8) *DividendQuery {
	return &DividendQuery{ss58Prefix: ss58Prefix}
}

// Fetch returns the dividend the subnet pays account. An account with no
// entry yields 0, not an error.
func (q *DividendQuery) Fetch(ctx context.Context, conn port.ChainConnection, subnet interface{}, account string) (float64, error) {
	if !conn.IsConnected() {
		return 0, apierr.ErrNotConnected
	}
	netuid, err := domain.ParseSubnetID(subnet)
	if err != nil {
		return 0, err
	}
	transport, err := conn.Transport()
	if err != nil {
		return 0, err
	}

	dividend, err := q.fetch(ctx, transport, netuid, account)
	metrics.LedgerQueries.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		zap.L().Error("dividend query failed",
			zap.Stringer("netuid", netuid),
			zap.String("hotkey", account),
			zap.Error(err))
		return 0, apierr.Wrap(apierr.ErrQueryFailed, err)
	}
	zap.L().Info("retrieved dividend",
		zap.Stringer("netuid", netuid),
		zap.String("hotkey", account),
		zap.Float64("dividend", dividend))
	return dividend, nil
}

func (q *DividendQuery) fetch(ctx context.Context, transport port.ChainTransport, netuid domain.SubnetID, account string) (float64, error) {
	if point, ok := transport.(port.StorageValueReader); ok {
		if accountID, prefix, err := DecodeSS58(account); err == nil && prefix == q.ss58Prefix {
			value, found, err := point.QueryStorageValue(ctx, ModuleSubtensor, ItemTaoDividendsPerSubnet,
				[]interface{}{netuid, accountID})
			if err != nil {
				return 0, err
			}
			if !found {
				return 0, nil
			}
			return toDividend(value)
		}
	}
	return q.scan(ctx, transport, netuid, account)
}

// scan walks the whole per-subnet map; the ledger only offers bulk reads
// when the account cannot be turned into a raw key.
func (q *DividendQuery) scan(ctx context.Context, reader port.StorageMapReader, netuid domain.SubnetID, account string) (float64, error) {
	pairs, err := reader.QueryStorageMap(ctx, ModuleSubtensor, ItemTaoDividendsPerSubnet, []interface{}{netuid})
	if err != nil {
		return 0, err
	}
	for _, pair := range pairs {
		key, err := EncodeSS58(pair.Key, q.ss58Prefix)
		if err != nil {
			zap.L().Warn("skipping undecodable storage key", zap.Binary("key", pair.Key), zap.Error(err))
			continue
		}
		if key == account {
			return toDividend(pair.Value)
		}
	}
	return 0, nil
}

func toDividend(v interface{}) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative dividend %v", f)
	}
	return f, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case uint64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		return parseFloat(n.String())
	case string:
		return parseFloat(n)
	}
	return 0, fmt.Errorf("dividend value of type %T", v)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("dividend value %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("dividend value %q is not finite", s)
	}
	return f, nil
}
