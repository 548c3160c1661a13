package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
)

const (
	DefaultSubgraphPageSize = 1000
	// minTotalShares drops drained pools the subgraph still lists.
	minTotalShares = "0.000000000001"

	subgraphProviderName = "subgraph"
)

// DefaultPoolTypes are the tags the parser can build pools from.
var DefaultPoolTypes = []string{
	"Weighted", "Investment", "LiquidityBootstrapping", "Managed",
	"Stable", "MetaStable", "ComposableStable",
	"Linear", "AaveLinear", "ERC4626Linear",
}

const poolsQuery = `query pools($first: Int, $skip: Int, $where: Pool_filter, $block: Block_height) {
  pools(first: $first, skip: $skip, orderBy: id, where: $where, block: $block) {
    id
    address
    poolType
    poolTypeVersion
    swapFee
    swapEnabled
    totalShares
    totalLiquidity
    amp
    mainIndex
    wrappedIndex
    lowerTarget
    upperTarget
    tokensList
    tokens(orderBy: index) {
      address
      index
      symbol
      name
      decimals
      balance
      weight
      priceRate
    }
  }
  _meta {
    block {
      number
    }
  }
}`

var errSubgraph = errors.New("subgraph error")

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type subgraphResponse struct {
	Data struct {
		Pools []domain.RawPool `json:"pools"`
		Meta  struct {
			Block struct {
				Number uint64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SubgraphPoolProvider pages through a Balancer subgraph.
type SubgraphPoolProvider struct {
	url        string
	httpClient *http.Client
	pageSize   int
	retries    int
	backoff    time.Duration
}

type SubgraphOption func(*SubgraphPoolProvider)

func WithHTTPClient(c *http.Client) SubgraphOption {
	return func(p *SubgraphPoolProvider) { p.httpClient = c }
}

func WithPageSize(n int) SubgraphOption {
	return func(p *SubgraphPoolProvider) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithRetry sets how often a failed page request is retried and the initial
// backoff.
func WithRetry(retries int, backoff time.Duration) SubgraphOption {
	return func(p *SubgraphPoolProvider) {
		p.retries = retries
		p.backoff = backoff
	}
}

func NewSubgraphPoolProvider(url string, opts ...SubgraphOption) *SubgraphPoolProvider {
	p := &SubgraphPoolProvider{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   DefaultSubgraphPageSize,
		retries:    3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SubgraphPoolProvider) GetPools(ctx context.Context, opts GetPoolsOptions) (GetPoolsResponse, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderFetchDuration.WithLabelValues(subgraphProviderName).Observe(time.Since(start).Seconds())
	}()

	poolTypes := opts.PoolTypes
	if len(poolTypes) == 0 {
		poolTypes = DefaultPoolTypes
	}
	where := map[string]interface{}{
		"swapEnabled":    true,
		"totalShares_gt": minTotalShares,
		"poolType_in":    poolTypes,
	}

	var (
		all    []domain.RawPool
		synced *uint64
	)
	for skip := 0; ; skip += p.pageSize {
		variables := map[string]interface{}{
			"first": p.pageSize,
			"skip":  skip,
			"where": where,
		}
		if opts.Block != nil {
			variables["block"] = map[string]interface{}{"number": *opts.Block}
		}

		var page subgraphResponse
		err := withRetry(ctx, subgraphProviderName, p.retries, p.backoff, func(ctx context.Context) error {
			var err error
			page, err = p.query(ctx, variables)
			return err
		})
		if err != nil {
			return GetPoolsResponse{}, fmt.Errorf("fetch pools page at %d: %w", skip, err)
		}

		all = append(all, page.Data.Pools...)
		if synced == nil && page.Data.Meta.Block.Number > 0 {
			block := page.Data.Meta.Block.Number
			synced = &block
		}
		if len(page.Data.Pools) < p.pageSize {
			break
		}
	}

	log.Debug().Int("pools", len(all)).Str("url", p.url).Msg("fetched pools from subgraph")
	return GetPoolsResponse{Pools: all, SyncedToBlockNumber: synced}, nil
}

func (p *SubgraphPoolProvider) query(ctx context.Context, variables map[string]interface{}) (subgraphResponse, error) {
	body, err := sonic.Marshal(graphQLRequest{Query: poolsQuery, Variables: variables})
	if err != nil {
		return subgraphResponse{}, fmt.Errorf("marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return subgraphResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return subgraphResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return subgraphResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return subgraphResponse{}, fmt.Errorf("%w: status %d: %s", errSubgraph, resp.StatusCode, truncate(raw, 200))
	}

	var out subgraphResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return subgraphResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return subgraphResponse{}, fmt.Errorf("%w: %s", errSubgraph, out.Errors[0].Message)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
