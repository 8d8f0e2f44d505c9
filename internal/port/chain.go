package port

import (
	"context"
)

// StoragePair is one entry of a storage map. Key is the map's final key
// component (for a double map keyed by account, the raw account id) and
// Value is the decoded scalar.
type StoragePair struct {
	Key   []byte
	Value interface{}
}

// StorageMapReader is the bulk read the ledger exposes per map parameter.
type StorageMapReader interface {
	QueryStorageMap(ctx context.Context, module, function string, params []interface{}) ([]StoragePair, error)
}

// StorageValueReader is an optional point lookup. found is false when the
// ledger has no entry for the key.
type StorageValueReader interface {
	QueryStorageValue(ctx context.Context, module, function string, params []interface{}) (value interface{}, found bool, err error)
}

// ChainTransport is one live handle to a node.
type ChainTransport interface {
	StorageMapReader
	Ping(ctx context.Context) error
	Close()
}

type ChainDialer interface {
	Dial(ctx context.Context, endpoint string) (ChainTransport, error)
}

// ChainConnection is what the query side needs from a managed connection.
type ChainConnection interface {
	IsConnected() bool
	Transport() (ChainTransport, error)
}

// ManagedConnection is a ChainConnection its owner can open and release.
type ManagedConnection interface {
	ChainConnection
	Connect(ctx context.Context) error
	Close()
}

type DividendFetcher interface {
	Fetch(ctx context.Context, conn ChainConnection, subnet interface{}, account string) (float64, error)
}
