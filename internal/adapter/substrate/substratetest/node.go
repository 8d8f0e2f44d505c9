// Package substratetest runs an in-memory Substrate JSON-RPC node for tests.
package substratetest

import (
	"encoding/binary"
	"errors"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"tao_dividends_api/internal/adapter/substrate"
)

const BlockHash = "0x3f7a5b00000000000000000000000000000000000000000000000000000000aa"

var errInjected = errors.New("injected failure")

// Node serves the handful of RPC methods the dividend reader uses.
type Node struct {
	mu      sync.Mutex
	storage map[string]string
	calls   map[string]int
	failing map[string]bool
}

func NewNode() *Node {
	return &Node{
		storage: map[string]string{},
		calls:   map[string]int{},
		failing: map[string]bool{},
	}
}

// Start serves the node over HTTP until the test ends.
func (n *Node) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := rpc.NewServer()
	for name, svc := range map[string]interface{}{
		"system": &systemAPI{n},
		"chain":  &chainAPI{n},
		"state":  &stateAPI{n},
	} {
		if err := srv.RegisterName(name, svc); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return ts
}

// SetDividend stores a TaoDividendsPerSubnet entry.
func (n *Node) SetDividend(netuid uint16, accountID []byte, value uint64) {
	key := substrate.StoragePrefix(substrate.ModuleSubtensor, substrate.ItemTaoDividendsPerSubnet)
	key = binary.LittleEndian.AppendUint16(key, netuid)
	key = append(key, substrate.Blake2_128Concat(accountID)...)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.storage[hexutil.Encode(key)] = hexutil.Encode(binary.LittleEndian.AppendUint64(nil, value))
}

// SetFailing makes method ("state_getStorage", "system_chain", ...) return
// an error until switched off again.
func (n *Node) SetFailing(method string, fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[method] = fail
}

func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *Node) enter(method string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[method]++
	if n.failing[method] {
		return errInjected
	}
	return nil
}

type systemAPI struct{ n *Node }

func (a *systemAPI) Chain() (string, error) {
	if err := a.n.enter("system_chain"); err != nil {
		return "", err
	}
	return "Bittensor", nil
}

type chainAPI struct{ n *Node }

func (a *chainAPI) GetBlockHash(number *uint64) (string, error) {
	if err := a.n.enter("chain_getBlockHash"); err != nil {
		return "", err
	}
	return BlockHash, nil
}

type stateAPI struct{ n *Node }

func (a *stateAPI) GetKeysPaged(prefix string, count int, start *string, at *string) ([]string, error) {
	if err := a.n.enter("state_getKeysPaged"); err != nil {
		return nil, err
	}
	a.n.mu.Lock()
	defer a.n.mu.Unlock()

	var keys []string
	for k := range a.n.storage {
		if strings.HasPrefix(k, prefix) && (start == nil || k > *start) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > count {
		keys = keys[:count]
	}
	return keys, nil
}

type ChangeSet struct {
	Block   string      `json:"block"`
	Changes [][]*string `json:"changes"`
}

func (a *stateAPI) QueryStorageAt(keys []string, at *string) ([]ChangeSet, error) {
	if err := a.n.enter("state_queryStorageAt"); err != nil {
		return nil, err
	}
	a.n.mu.Lock()
	defer a.n.mu.Unlock()

	set := ChangeSet{Block: BlockHash}
	for _, k := range keys {
		key := k
		var value *string
		if v, ok := a.n.storage[k]; ok {
			value = &v
		}
		set.Changes = append(set.Changes, []*string{&key, value})
	}
	return []ChangeSet{set}, nil
}

func (a *stateAPI) GetStorage(key string, at *string) (*string, error) {
	if err := a.n.enter("state_getStorage"); err != nil {
		return nil, err
	}
	a.n.mu.Lock()
	defer a.n.mu.Unlock()

	v, ok := a.n.storage[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
