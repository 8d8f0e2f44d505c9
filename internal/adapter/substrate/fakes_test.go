package substrate_test

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"tao_dividends_api/internal/port"
)

const (
	aliceHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bobHex    = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	bobSS58   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

type mapQuery struct {
	module   string
	function string
	params   []interface{}
}

// mapOnlyTransport supports bulk map reads only.
type mapOnlyTransport struct {
	mu       sync.Mutex
	pairs    []port.StoragePair
	queryErr error
	pingErr  error
	queries  []mapQuery
	closed   int
}

func (f *mapOnlyTransport) QueryStorageMap(_ context.Context, module, function string, params []interface{}) ([]port.StoragePair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, mapQuery{module: module, function: function, params: params})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.pairs, nil
}

func (f *mapOnlyTransport) Ping(context.Context) error { return f.pingErr }

func (f *mapOnlyTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// pointTransport adds single entry reads.
type pointTransport struct {
	mapOnlyTransport
	values      map[string]interface{}
	pointReads  int
	pointParams []interface{}
}

func (f *pointTransport) QueryStorageValue(_ context.Context, _, _ string, params []interface{}) (interface{}, bool, error) {
	f.pointReads++
	f.pointParams = params
	v, ok := f.values[hex.EncodeToString(params[1].([]byte))]
	return v, ok, nil
}

type connectedConn struct {
	transport port.ChainTransport
	connected bool
}

func (c *connectedConn) IsConnected() bool { return c.connected }

func (c *connectedConn) Transport() (port.ChainTransport, error) {
	if !c.connected {
		return nil, errors.New("not connected")
	}
	return c.transport, nil
}

// scriptedDialer fails the first `failures` dials.
type scriptedDialer struct {
	mu        sync.Mutex
	failures  int
	dials     int
	endpoints []string
	transport *mapOnlyTransport
}

func (d *scriptedDialer) Dial(_ context.Context, endpoint string) (port.ChainTransport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.endpoints = append(d.endpoints, endpoint)
	if d.dials <= d.failures {
		return nil, errors.New("connection refused")
	}
	return d.transport, nil
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func (s *sleepRecorder) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, w := range s.waits {
		total += w
	}
	return total
}
