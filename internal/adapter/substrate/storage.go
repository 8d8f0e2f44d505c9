package substrate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"tao_dividends_api/internal/domain"
)

const (
	ModuleSubtensor           = "SubtensorModule"
	ItemTaoDividendsPerSubnet = "TaoDividendsPerSubnet"
)

// storageMap describes a double map whose first key is given as a query
// parameter (Identity hashed) and whose second key is an account id
// (Blake2_128Concat hashed).
type storageMap struct {
	module      string
	item        string
	encodeFirst func(v interface{}) ([]byte, error)
	decodeValue func(raw []byte) (interface{}, error)
}

var storageMaps = map[string]storageMap{
	ModuleSubtensor + "." + ItemTaoDividendsPerSubnet: {
		module:      ModuleSubtensor,
		item:        ItemTaoDividendsPerSubnet,
		encodeFirst: encodeNetuid,
		decodeValue: decodeU64,
	},
}

func lookupStorageMap(module, item string) (storageMap, error) {
	m, ok := storageMaps[module+"."+item]
	if !ok {
		return storageMap{}, fmt.Errorf("unknown storage map %s.%s", module, item)
	}
	return m, nil
}

func encodeNetuid(v interface{}) ([]byte, error) {
	netuid, err := domain.ParseSubnetID(v)
	if err != nil {
		return nil, err
	}
	return encodeU16(uint16(netuid)), nil
}

func decodeU64(raw []byte) (interface{}, error) {
	if len(raw) != 8 {
		return nil, fmt.Errorf("u64 value is %d bytes", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// mapPrefix is the key prefix of every entry for the given first key.
func (m storageMap) mapPrefix(params []interface{}) ([]byte, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("%s.%s needs a first key", m.module, m.item)
	}
	first, err := m.encodeFirst(params[0])
	if err != nil {
		return nil, err
	}
	return append(StoragePrefix(m.module, m.item), first...), nil
}

// entryKey is the full storage key for params [first, accountID].
func (m storageMap) entryKey(params []interface{}) ([]byte, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%s.%s point lookup needs two keys", m.module, m.item)
	}
	prefix, err := m.mapPrefix(params[:1])
	if err != nil {
		return nil, err
	}
	account, ok := params[1].([]byte)
	if !ok || len(account) != accountIDLen {
		return nil, fmt.Errorf("second key must be a %d byte account id", accountIDLen)
	}
	return append(prefix, Blake2_128Concat(account)...), nil
}

// accountFromKey strips prefix and the Blake2_128 hash off a full storage
// key, leaving the raw account id.
func accountFromKey(prefix, key []byte) ([]byte, error) {
	if !bytes.HasPrefix(key, prefix) {
		return nil, fmt.Errorf("storage key outside map prefix")
	}
	rest := key[len(prefix):]
	if len(rest) != 16+accountIDLen {
		return nil, fmt.Errorf("storage key suffix is %d bytes", len(rest))
	}
	account := rest[16:]
	if !bytes.Equal(Blake2_128(account), rest[:16]) {
		return nil, fmt.Errorf("storage key hash does not match account")
	}
	return append([]byte{}, account...), nil
}
