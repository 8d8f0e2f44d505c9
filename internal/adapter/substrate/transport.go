package substrate

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"tao_dividends_api/internal/port"
)

const defaultPageSize = 1000

// RPCDialer opens Substrate JSON-RPC handles over ws(s):// or http(s)://.
type RPCDialer struct {
	DialTimeout time.Duration
	PageSize    int
}

func (d RPCDialer) Dial(ctx context.Context, endpoint string) (port.ChainTransport, error) {
	if d.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.DialTimeout)
		defer cancel()
	}
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	pageSize := d.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &rpcTransport{client: client, pageSize: pageSize}, nil
}

type rpcTransport struct {
	client   *rpc.Client
	pageSize int
}

var (
	_ port.ChainTransport     = (*rpcTransport)(nil)
	_ port.StorageValueReader = (*rpcTransport)(nil)
)

func (t *rpcTransport) Ping(ctx context.Context) error {
	var chain string
	if err := t.client.CallContext(ctx, &chain, "system_chain"); err != nil {
		return err
	}
	zap.L().Debug("node reachable", zap.String("chain", chain))
	return nil
}

func (t *rpcTransport) Close() {
	t.client.Close()
}

// head pins every read of one query to the same block.
func (t *rpcTransport) head(ctx context.Context) (string, error) {
	var hash string
	if err := t.client.CallContext(ctx, &hash, "chain_getBlockHash"); err != nil {
		return "", fmt.Errorf("chain_getBlockHash: %w", err)
	}
	return hash, nil
}

type storageChangeSet struct {
	Block   string      `json:"block"`
	Changes [][]*string `json:"changes"`
}

func (t *rpcTransport) QueryStorageMap(ctx context.Context, module, function string, params []interface{}) ([]port.StoragePair, error) {
	m, err := lookupStorageMap(module, function)
	if err != nil {
		return nil, err
	}
	prefix, err := m.mapPrefix(params)
	if err != nil {
		return nil, err
	}
	at, err := t.head(ctx)
	if err != nil {
		return nil, err
	}

	prefixHex := hexutil.Encode(prefix)
	var pairs []port.StoragePair
	var start interface{}
	for {
		var keys []string
		if err := t.client.CallContext(ctx, &keys, "state_getKeysPaged", prefixHex, t.pageSize, start, at); err != nil {
			return nil, fmt.Errorf("state_getKeysPaged: %w", err)
		}
		if len(keys) == 0 {
			break
		}

		page, err := t.readPage(ctx, m, prefix, keys, at)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, page...)

		if len(keys) < t.pageSize {
			break
		}
		start = keys[len(keys)-1]
	}
	return pairs, nil
}

func (t *rpcTransport) readPage(ctx context.Context, m storageMap, prefix []byte, keys []string, at string) ([]port.StoragePair, error) {
	var sets []storageChangeSet
	if err := t.client.CallContext(ctx, &sets, "state_queryStorageAt", keys, at); err != nil {
		return nil, fmt.Errorf("state_queryStorageAt: %w", err)
	}

	var out []port.StoragePair
	for _, set := range sets {
		for _, change := range set.Changes {
			if len(change) != 2 || change[0] == nil || change[1] == nil {
				continue
			}
			rawKey, err := hexutil.Decode(*change[0])
			if err != nil {
				return nil, fmt.Errorf("storage key: %w", err)
			}
			account, err := accountFromKey(prefix, rawKey)
			if err != nil {
				return nil, err
			}
			rawValue, err := hexutil.Decode(*change[1])
			if err != nil {
				return nil, fmt.Errorf("storage value: %w", err)
			}
			value, err := m.decodeValue(rawValue)
			if err != nil {
				return nil, err
			}
			out = append(out, port.StoragePair{Key: account, Value: value})
		}
	}
	return out, nil
}

func (t *rpcTransport) QueryStorageValue(ctx context.Context, module, function string, params []interface{}) (interface{}, bool, error) {
	m, err := lookupStorageMap(module, function)
	if err != nil {
		return nil, false, err
	}
	key, err := m.entryKey(params)
	if err != nil {
		return nil, false, err
	}

	var raw *string
	if err := t.client.CallContext(ctx, &raw, "state_getStorage", hexutil.Encode(key)); err != nil {
		return nil, false, fmt.Errorf("state_getStorage: %w", err)
	}
	if raw == nil {
		return nil, false, nil
	}
	b, err := hexutil.Decode(*raw)
	if err != nil {
		return nil, false, fmt.Errorf("storage value: %w", err)
	}
	value, err := m.decodeValue(b)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}
