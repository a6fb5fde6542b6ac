package nodehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/pkg/circuitbreaker"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	foreignAPIPath = "/v2/foreign"
	apiUser        = "grin"

	// DefaultTimeout ...
	DefaultTimeout = 20 * time.Second
	// OutputsChunkSize is the max number of commitments asked in one request.
	OutputsChunkSize = 100
	// MaxParallelRequests bounds the concurrent output queries.
	MaxParallelRequests = 4
)

var (
	// ErrNodeUnavailable ...
	ErrNodeUnavailable = errors.New("node is unavailable")
	// ErrNodeRequest ...
	ErrNodeRequest = errors.New("node rejected the request")
	// ErrInvalidURL ...
	ErrInvalidURL = errors.New("node url must start with http:// or https://")
)

// Option customizes the client.
type Option func(*client)

// WithAPISecret sets the secret sent as basic auth password.
func WithAPISecret(secret string) Option {
	return func(c *client) {
		c.apiSecret = secret
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithRateLimit caps the number of requests per second. Zero means
// unlimited.
func WithRateLimit(rps int) Option {
	return func(c *client) {
		if rps > 0 {
			c.limiter = ratelimit.New(rps)
		}
	}
}

// WithMetrics reports every request outcome to the given sink.
func WithMetrics(m ports.Metrics) Option {
	return func(c *client) {
		if m != nil {
			c.metrics = m
		}
	}
}

type client struct {
	url       string
	apiSecret string
	http      *http.Client
	cb        *circuitbreaker.Breaker
	limiter   ratelimit.Limiter
	metrics   ports.Metrics
	reqID     uint64
}

// NewClient returns a client of the foreign JSON-RPC api exposed by the
// node at the given url.
func NewClient(url string, opts ...Option) (ports.NodeClient, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, ErrInvalidURL
	}

	c := &client{
		url:     url,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = circuitbreaker.New(
		fmt.Sprintf("node %s", url),
		isNodeFailure,
		func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name, "from": from.String(), "to": to.String(),
			}).Warn("node circuit breaker changed state")
		},
	)
	return c, nil
}

// NewFactory returns a factory building clients with the given options.
func NewFactory(opts ...Option) ports.NodeClientFactory {
	return func(url string) (ports.NodeClient, error) {
		return NewClient(url, opts...)
	}
}

func (c *client) URL() string {
	return c.url
}

func (c *client) Close() {
	c.http.CloseIdleConnections()
}

func (c *client) ChainHeight(ctx context.Context) (uint64, error) {
	var tip tipResult
	if err := c.call(ctx, "get_tip", []interface{}{}, &tip); err != nil {
		return 0, err
	}
	return tip.Height, nil
}

func (c *client) PostTx(ctx context.Context, tx []byte, fluff bool) error {
	if !json.Valid(tx) {
		return fmt.Errorf("%w: transaction is not valid json", ErrNodeRequest)
	}
	params := []interface{}{json.RawMessage(tx), fluff}
	return c.call(ctx, "push_transaction", params, nil)
}

// GetOutputs asks the node for the given commitments, in chunks queried in
// parallel. Commitments unknown to the node are simply missing from the
// result.
func (c *client) GetOutputs(
	ctx context.Context, commits []string,
) ([]ports.NodeOutput, error) {
	if len(commits) <= 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		result = make([]ports.NodeOutput, 0, len(commits))
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(MaxParallelRequests)

	for start := 0; start < len(commits); start += OutputsChunkSize {
		end := start + OutputsChunkSize
		if end > len(commits) {
			end = len(commits)
		}
		chunk := commits[start:end]

		eg.Go(func() error {
			var outputs []outputResult
			params := []interface{}{chunk, nil, nil, false, false}
			if err := c.call(ctx, "get_outputs", params, &outputs); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, o := range outputs {
				if o.Spent {
					continue
				}
				result = append(result, o)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetKernel returns the kernel with the given excess, or nil if the node
// does not know it.
func (c *client) GetKernel(
	ctx context.Context, excess string,
) (ports.NodeKernel, error) {
	var kernel kernelResult
	params := []interface{}{excess, nil, nil}
	if err := c.call(ctx, "get_kernel", params, &kernel); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return kernel, nil
}

func (c *client) call(
	ctx context.Context, method string, params []interface{}, out interface{},
) (err error) {
	defer func() {
		if c.metrics != nil {
			c.metrics.NodeRequest(method, err)
		}
	}()

	c.limiter.Take()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.reqID, 1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	var res *rpcResponse
	if err := c.cb.Execute(func() (err error) {
		res, err = c.post(ctx, body)
		return err
	}); err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return fmt.Errorf("%w: %s", ErrNodeUnavailable, err)
		}
		return err
	}

	if res.Error != nil {
		return fmt.Errorf("%w: %s", ErrNodeRequest, res.Error)
	}
	if res.Result == nil {
		return fmt.Errorf("%w: empty result", ErrNodeRequest)
	}
	if len(res.Result.Err) > 0 && string(res.Result.Err) != "null" {
		if isNotFound(res.Result.Err) {
			return errNotFound
		}
		return fmt.Errorf("%w: %s", ErrNodeRequest, res.Result.Err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res.Result.Ok, out)
}

// post wraps transport errors and server side failures with
// ErrNodeUnavailable, the only ones counting against the breaker.
func (c *client) post(ctx context.Context, body []byte) (*rpcResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.url+foreignAPIPath, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(c.apiSecret) > 0 {
		req.SetBasicAuth(apiUser, c.apiSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s", ErrNodeUnavailable, err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"%w: status %d: %s", ErrNodeUnavailable, resp.StatusCode,
			strings.TrimSpace(string(buf)),
		)
	}

	var res rpcResponse
	if err := json.Unmarshal(buf, &res); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeRequest, err)
	}
	return &res, nil
}

func isNodeFailure(err error) bool {
	return errors.Is(err, ErrNodeUnavailable)
}
