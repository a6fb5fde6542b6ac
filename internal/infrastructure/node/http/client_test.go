package nodehttp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mwswap/mwswapd/internal/infrastructure/metrics"
	nodehttp "github.com/mwswap/mwswapd/internal/infrastructure/node/http"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type request struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeNode struct {
	mu      sync.Mutex
	tip     uint64
	outputs map[string]uint64
	kernels map[string]uint64
	pushed  []json.RawMessage
	calls   map[string]int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		tip:     120,
		outputs: map[string]uint64{"08aa": 100, "08bb": 110},
		kernels: map[string]uint64{"09cc": 115},
		calls:   map[string]int{},
	}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "grin" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Path != "/v2/foreign" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[req.Method]++

	var result interface{}
	switch req.Method {
	case "get_tip":
		result = map[string]interface{}{"Ok": map[string]interface{}{"height": n.tip}}
	case "push_transaction":
		n.pushed = append(n.pushed, req.Params[0])
		result = map[string]interface{}{"Ok": nil}
	case "get_outputs":
		var commits []string
		json.Unmarshal(req.Params[0], &commits)
		found := make([]map[string]interface{}, 0)
		for _, c := range commits {
			if h, ok := n.outputs[c]; ok {
				found = append(found, map[string]interface{}{
					"commit": c, "block_height": h, "output_type": "Transaction",
				})
			}
		}
		result = map[string]interface{}{"Ok": found}
	case "get_kernel":
		var excess string
		json.Unmarshal(req.Params[0], &excess)
		h, ok := n.kernels[excess]
		if !ok {
			result = map[string]interface{}{"Err": map[string]string{"NotFound": excess}}
			break
		}
		result = map[string]interface{}{"Ok": map[string]interface{}{
			"tx_kernel": map[string]interface{}{"excess": excess, "features": "Plain"},
			"height":    h,
		}}
	default:
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32601, "message": "method not found"},
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0", "id": req.ID, "result": result,
	})
}

func TestClient(t *testing.T) {
	t.Run("url", testURL())
	t.Run("requests", testRequests())
	t.Run("chunked outputs", testChunkedOutputs())
	t.Run("unavailable", testUnavailable())
}

func testURL() func(*testing.T) {
	return func(t *testing.T) {
		_, err := nodehttp.NewClient("ftp://node")
		require.ErrorIs(t, err, nodehttp.ErrInvalidURL)

		c, err := nodehttp.NewClient("http://127.0.0.1:3413/")
		require.NoError(t, err)
		require.Equal(t, "http://127.0.0.1:3413", c.URL())

		factory := nodehttp.NewFactory()
		c, err = factory("https://node.example")
		require.NoError(t, err)
		require.Equal(t, "https://node.example", c.URL())
	}
}

func testRequests() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		node := newFakeNode()
		srv := httptest.NewServer(node)
		defer srv.Close()

		collector := metrics.NewCollector()
		c, err := nodehttp.NewClient(
			srv.URL, nodehttp.WithAPISecret("secret"),
			nodehttp.WithRateLimit(1000), nodehttp.WithMetrics(collector),
		)
		require.NoError(t, err)
		defer c.Close()

		height, err := c.ChainHeight(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(120), height)

		require.NoError(t, c.PostTx(ctx, []byte(`{"body":{}}`), true))
		require.Len(t, node.pushed, 1)
		require.Error(t, c.PostTx(ctx, []byte("not json"), false))

		outputs, err := c.GetOutputs(ctx, []string{"08aa", "08zz"})
		require.NoError(t, err)
		require.Len(t, outputs, 1)
		require.Equal(t, "08aa", outputs[0].GetCommit())
		require.Equal(t, uint64(100), outputs[0].GetHeight())
		require.False(t, outputs[0].IsCoinbase())

		kernel, err := c.GetKernel(ctx, "09cc")
		require.NoError(t, err)
		require.NotNil(t, kernel)
		require.Equal(t, uint64(115), kernel.GetHeight())
		require.Equal(t, "09cc", kernel.GetExcess())

		kernel, err = c.GetKernel(ctx, "09dd")
		require.NoError(t, err)
		require.Nil(t, kernel)

		// get_tip, push_transaction, get_outputs, get_kernel ok and not found
		count, err := testutil.GatherAndCount(collector.Gatherer())
		require.NoError(t, err)
		require.Equal(t, 5, count)
	}
}

func testChunkedOutputs() func(*testing.T) {
	return func(t *testing.T) {
		node := newFakeNode()
		commits := make([]string, 0, 250)
		for i := 0; i < 250; i++ {
			commit := fmt.Sprintf("08%04x", i)
			node.outputs[commit] = uint64(i + 1)
			commits = append(commits, commit)
		}
		srv := httptest.NewServer(node)
		defer srv.Close()

		c, err := nodehttp.NewClient(srv.URL, nodehttp.WithAPISecret("secret"))
		require.NoError(t, err)

		outputs, err := c.GetOutputs(context.Background(), commits)
		require.NoError(t, err)
		require.Len(t, outputs, 250)
		require.Equal(t, 3, node.calls["get_outputs"])
	}
}

func testUnavailable() func(*testing.T) {
	return func(t *testing.T) {
		node := newFakeNode()
		srv := httptest.NewServer(node)
		defer srv.Close()

		// wrong secret
		c, err := nodehttp.NewClient(srv.URL, nodehttp.WithAPISecret("nope"))
		require.NoError(t, err)
		_, err = c.ChainHeight(context.Background())
		require.ErrorIs(t, err, nodehttp.ErrNodeUnavailable)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c, err = nodehttp.NewClient(srv.URL, nodehttp.WithAPISecret("secret"))
		require.NoError(t, err)
		_, err = c.ChainHeight(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, nodehttp.ErrNodeUnavailable)

		srv.Close()
		c, err = nodehttp.NewClient(srv.URL, nodehttp.WithAPISecret("secret"))
		require.NoError(t, err)
		_, err = c.ChainHeight(context.Background())
		require.ErrorIs(t, err, nodehttp.ErrNodeUnavailable)
	}
}
