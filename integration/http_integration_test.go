package integration

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tao_dividends_api/internal/adapter/cache"
	"tao_dividends_api/internal/adapter/substrate"
	"tao_dividends_api/internal/adapter/substrate/substratetest"
	"tao_dividends_api/internal/usecase"
	httpPkg "tao_dividends_api/pkg/http"
	"tao_dividends_api/pkg/config"
)

const (
	token     = "integration-token"
	aliceHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bobSS58   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

type stack struct {
	node   *substratetest.Node
	redis  *miniredis.Miniredis
	server *httptest.Server
}

// newStack wires the service the way cmd/api does, against an in-memory
// node and an in-memory Redis.
func newStack(t *testing.T, endpoint string) *stack {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())

	node := substratetest.NewNode()
	if endpoint == "" {
		endpoint = node.Start(t).URL
	}
	mr := miniredis.RunT(t)

	t.Setenv("API_TOKEN", token)
	t.Setenv("BITTENSOR_NETWORK", "local")
	t.Setenv("BITTENSOR_LOCAL_ENDPOINT", endpoint)
	t.Setenv("CHAIN_RETRY_BACKOFF", "1ms")
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("REDIS_TIMEOUT", "200ms")
	cfg, err := config.LoadFile(t.TempDir() + "/.env")
	require.NoError(t, err)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	backend := cache.NewRedisBackend(cache.RedisConfig{Host: mr.Host(), Port: port, Timeout: cfg.Redis.Timeout})
	t.Cleanup(func() { _ = backend.Close() })
	store, err := cache.NewStore(backend, cfg.Cache.TTL)
	require.NoError(t, err)

	resolver := substrate.NewEndpointResolver(cfg.Bittensor.Endpoints)
	dialer := substrate.RPCDialer{DialTimeout: time.Second}
	query := substrate.NewDividendQuery(substrate.BittensorSS58Prefix)
	connCfg := substrate.ConnectionConfig{
		Network:     cfg.Bittensor.Network,
		MaxAttempts: cfg.Chain.MaxRetries,
		BaseDelay:   cfg.Chain.Backoff,
	}
	router := httpPkg.NewRouter(cfg, func() *usecase.DividendService {
		conn := substrate.NewChainConnection(connCfg, resolver, dialer)
		return usecase.NewDividendService(conn, query, store, cfg.Cache.KeyPrefix)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &stack{node: node, redis: mr, server: srv}
}

func (s *stack) dividends(t *testing.T, netuid, hotkey string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet,
		s.server.URL+"/api/v1/tao_dividends?netuid="+netuid+"&hotkey="+hotkey, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func aliceID(t *testing.T) []byte {
	id, err := hex.DecodeString(aliceHex)
	require.NoError(t, err)
	return id
}

func TestTaoDividends_CacheAside(t *testing.T) {
	s := newStack(t, "")
	s.node.SetDividend(18, aliceID(t), 777000)

	status, body := s.dividends(t, "18", aliceSS58)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(18), body["netuid"])
	assert.Equal(t, aliceSS58, body["hotkey"])
	assert.Equal(t, float64(777000), body["dividend"])
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, false, body["stake_tx_triggered"])

	key := "tao_dividends:18:" + aliceSS58
	assert.True(t, s.redis.Exists(key))
	assert.Equal(t, 120*time.Second, s.redis.TTL(key))
	assert.Equal(t, 1, s.node.Calls("state_getStorage"))
	assert.Equal(t, 0, s.node.Calls("state_getKeysPaged"), "ss58 hotkeys use the point lookup")

	status, body = s.dividends(t, "18", aliceSS58)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, float64(777000), body["dividend"])
	assert.Equal(t, 1, s.node.Calls("state_getStorage"), "hit must not reach the ledger")
	assert.Equal(t, 1, s.node.Calls("system_chain"), "hit must not open a connection")
}

func TestTaoDividends_AbsentAccountIsZero(t *testing.T) {
	s := newStack(t, "")
	s.node.SetDividend(18, aliceID(t), 5)

	status, body := s.dividends(t, "18", bobSS58)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["dividend"])

	status, body = s.dividends(t, "19", aliceSS58)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["dividend"])
}

func TestTaoDividends_NonSS58HotkeyScansMap(t *testing.T) {
	s := newStack(t, "")
	s.node.SetDividend(18, aliceID(t), 5)

	status, body := s.dividends(t, "18", strings.Repeat("0", 48))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(0), body["dividend"])
	assert.Equal(t, 0, s.node.Calls("state_getStorage"))
	assert.Equal(t, 1, s.node.Calls("state_getKeysPaged"))
	assert.Equal(t, 1, s.node.Calls("state_queryStorageAt"))
}

func TestTaoDividends_RedisDownServesFromLedger(t *testing.T) {
	s := newStack(t, "")
	s.node.SetDividend(18, aliceID(t), 42)
	s.redis.Close()

	status, body := s.dividends(t, "18", aliceSS58)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(42), body["dividend"])
	assert.Equal(t, false, body["cached"])
}

func TestTaoDividends_LedgerQueryFails(t *testing.T) {
	s := newStack(t, "")
	s.node.SetFailing("state_getStorage", true)

	status, body := s.dividends(t, "18", aliceSS58)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "ledger query failed", body["error"])
	assert.Empty(t, s.redis.Keys(), "failures are not cached")
}

func TestTaoDividends_LedgerUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	s := newStack(t, dead.URL)

	status, body := s.dividends(t, "18", aliceSS58)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "ledger unreachable", body["error"])
}

func TestTaoDividends_RejectsBadRequests(t *testing.T) {
	s := newStack(t, "")

	status, _ := s.dividends(t, "70000", aliceSS58)
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Get(s.server.URL + "/api/v1/tao_dividends?netuid=1&hotkey=" + aliceSS58)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, s.node.Calls("system_chain"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t, "")

	resp, err := http.Get(s.server.URL + "/health")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	s.node.SetDividend(1, aliceID(t), 1)
	s.dividends(t, "1", aliceSS58)

	resp, err = http.Get(s.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
