package http

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/http/httputil"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/services/sor"
	"github.com/hxuan190/balancer-sor/internal/services/swap"
)

const (
	defaultSlippageBps = 50
	maxSlippageBps     = 5000
	bpsDenominator     = 10000
)

// SORService is the routing surface the HTTP handlers need.
type SORService interface {
	ChainID() int64
	RPCURL() string
	Token(address common.Address) (domain.Token, bool)
	GetSwapPaths(kind domain.SwapKind, tokenIn, tokenOut domain.Token, amount domain.TokenAmount) (*swap.Swap, error)
	Stats() sor.PoolStats
	PoolTypes() []string
	FetchAndCachePools(ctx context.Context, block *uint64) (int, error)
}

type QuoteHandler struct {
	sorSvc SORService
}

func NewQuoteHandler(sorSvc SORService) *QuoteHandler {
	return &QuoteHandler{sorSvc: sorSvc}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest represents the parameters for requesting a swap quote
type QuoteRequest struct {
	// Input token address (0x prefixed, zero address for the native asset)
	TokenIn string `form:"tokenIn" binding:"required"`

	// Output token address
	TokenOut string `form:"tokenOut" binding:"required"`

	// Amount in smallest token units: tokenIn units for GivenIn, tokenOut
	// units for GivenOut
	Amount string `form:"amount" binding:"required"`

	// GivenIn / GivenOut (ExactIn / ExactOut accepted)
	SwapKind string `form:"swapKind" binding:"required"`

	// Decimals for tokens no cached pool holds
	Decimals *uint8 `form:"decimals"`

	// Slippage tolerance in basis points. Default: 50
	SlippageBps uint16 `form:"slippageBps"`

	// Verify re-prices the route on chain through BalancerQueries
	Verify bool `form:"verify"`
}

// PathInfo describes one routed path of a quote
type PathInfo struct {
	Tokens       []string `json:"tokens"`
	Pools        []string `json:"pools"`
	InputAmount  string   `json:"inputAmount"`
	OutputAmount string   `json:"outputAmount"`
}

// QuoteResponse is the best route for a quote request
type QuoteResponse struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	SwapKind string `json:"swapKind"`

	// Raw amounts in smallest units, plus human readable renderings
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	AmountInHuman  string `json:"amountInHuman"`
	AmountOutHuman string `json:"amountOutHuman"`

	// ReturnAmount is the side the caller did not fix
	ReturnAmount string `json:"returnAmount"`
	// LimitAmount applies slippage to ReturnAmount: a minimum output for
	// GivenIn, a maximum input for GivenOut
	LimitAmount string `json:"limitAmount"`

	PriceImpactBps      uint64 `json:"priceImpactBps"`
	PriceImpactPercent  string `json:"priceImpactPercent"`
	PriceImpactSeverity string `json:"priceImpactSeverity"`
	PriceImpactWarning  string `json:"priceImpactWarning,omitempty"`

	IsBatchSwap bool       `json:"isBatchSwap"`
	Paths       []PathInfo `json:"paths"`

	OnChainReturnAmount string `json:"onChainReturnAmount,omitempty"`
}

type parsedQuoteRequest struct {
	req         *QuoteRequest
	kind        domain.SwapKind
	tokenIn     domain.Token
	tokenOut    domain.Token
	amount      domain.TokenAmount
	slippageBps uint16
}

func parseQuoteRequest(c *gin.Context, sorSvc SORService) (*parsedQuoteRequest, error) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid query parameters: %v", sorcommon.ErrInvalidInput, err)
	}

	kind, err := domain.ParseSwapKind(req.SwapKind)
	if err != nil {
		return nil, err
	}
	tokenIn, err := resolveToken(sorSvc, req.TokenIn, req.Decimals)
	if err != nil {
		return nil, err
	}
	tokenOut, err := resolveToken(sorSvc, req.TokenOut, req.Decimals)
	if err != nil {
		return nil, err
	}

	amountToken := tokenIn
	if kind == domain.GivenOut {
		amountToken = tokenOut
	}
	amount, err := domain.FromRawString(amountToken, req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: amount must be positive", sorcommon.ErrInvalidInput)
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = defaultSlippageBps
	}
	if slippageBps > maxSlippageBps {
		return nil, fmt.Errorf("%w: slippageBps above %d", sorcommon.ErrInvalidInput, maxSlippageBps)
	}

	return &parsedQuoteRequest{
		req:         &req,
		kind:        kind,
		tokenIn:     tokenIn,
		tokenOut:    tokenOut,
		amount:      amount,
		slippageBps: slippageBps,
	}, nil
}

// resolveToken looks the address up in the cached pools. Tokens no pool holds
// need explicit decimals.
func resolveToken(sorSvc SORService, address string, decimals *uint8) (domain.Token, error) {
	if !common.IsHexAddress(address) {
		return domain.Token{}, fmt.Errorf("%w: invalid token address %q", sorcommon.ErrInvalidInput, address)
	}
	addr := common.HexToAddress(address)
	if token, ok := sorSvc.Token(addr); ok {
		return token, nil
	}
	if decimals == nil {
		return domain.Token{}, fmt.Errorf("%w: unknown token %s, pass decimals", sorcommon.ErrInvalidInput, addr.Hex())
	}
	token := domain.NewToken(sorSvc.ChainID(), addr, *decimals, "")
	if !token.SupportsDecimals() {
		return domain.Token{}, fmt.Errorf("%w: decimals above %d", sorcommon.ErrInvalidInput, domain.MaxDecimals)
	}
	return token, nil
}

// @Summary Get swap quote
// @Description Finds the best split across candidate paths and prices it with pool math.
// @Tags quote
// @Produce json
// @Param tokenIn query string true "Input token address"
// @Param tokenOut query string true "Output token address"
// @Param amount query string true "Amount in smallest units"
// @Param swapKind query string true "GivenIn or GivenOut"
// @Param decimals query int false "Decimals for tokens unknown to the pool set"
// @Param slippageBps query int false "Slippage tolerance in bps. Default: 50"
// @Param verify query bool false "Re-price on chain through BalancerQueries"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response "No route found"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	parsed, err := parseQuoteRequest(c, h.sorSvc)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	sw, err := h.sorSvc.GetSwapPaths(parsed.kind, parsed.tokenIn, parsed.tokenOut, parsed.amount)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	if sw == nil {
		httputil.HandleNotFound(c, "no route found")
		return
	}

	resp, err := buildQuoteResponse(sw, parsed.slippageBps)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	if parsed.req.Verify {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		onChain, err := sw.Query(ctx, h.sorSvc.RPCURL(), nil)
		if err != nil {
			httputil.HandleError(c, err)
			return
		}
		resp.OnChainReturnAmount = onChain.Amount.Dec()
	}

	httputil.HandleSuccess(c, resp)
}

func buildQuoteResponse(sw *swap.Swap, slippageBps uint16) (QuoteResponse, error) {
	impact, err := sw.PriceImpact()
	if err != nil {
		return QuoteResponse{}, err
	}
	bps := impact.Bps()
	severity := swap.SeverityOf(impact)
	metrics.PriceImpact.WithLabelValues(string(severity)).Observe(float64(bps))

	returnAmount := sw.Quote()
	paths := make([]PathInfo, 0, len(sw.Paths()))
	for _, p := range sw.Paths() {
		info := PathInfo{
			Tokens:       make([]string, len(p.Tokens)),
			Pools:        make([]string, len(p.Pools)),
			InputAmount:  p.InputAmount.Amount.Dec(),
			OutputAmount: p.OutputAmount.Amount.Dec(),
		}
		for i, t := range p.Tokens {
			info.Tokens[i] = t.Address.Hex()
		}
		for i, pool := range p.Pools {
			info.Pools[i] = pool.ID().Hex()
		}
		paths = append(paths, info)
	}

	return QuoteResponse{
		TokenIn:             sw.TokenIn().Address.Hex(),
		TokenOut:            sw.TokenOut().Address.Hex(),
		SwapKind:            sw.SwapKind().String(),
		AmountIn:            sw.InputAmount().Amount.Dec(),
		AmountOut:           sw.OutputAmount().Amount.Dec(),
		AmountInHuman:       sw.InputAmount().ToHuman().String(),
		AmountOutHuman:      sw.OutputAmount().ToHuman().String(),
		ReturnAmount:        returnAmount.Amount.Dec(),
		LimitAmount:         limitAmount(returnAmount.Amount.ToBig(), sw.SwapKind(), slippageBps).String(),
		PriceImpactBps:      bps,
		PriceImpactPercent:  fmt.Sprintf("%.2f%%", float64(bps)/100.0),
		PriceImpactSeverity: string(severity),
		PriceImpactWarning:  severity.Warning(),
		IsBatchSwap:         sw.IsBatchSwap(),
		Paths:               paths,
	}, nil
}

// limitAmount is the slippage bound on the returned amount: amount scaled
// down for GivenIn, and for GivenOut divided by (1 - slippage) so the maximum
// input stays correct for large tolerances.
func limitAmount(amount *big.Int, kind domain.SwapKind, slippageBps uint16) *big.Int {
	out := new(big.Int)
	if kind == domain.GivenIn {
		out.Mul(amount, big.NewInt(int64(bpsDenominator-int(slippageBps))))
		return out.Quo(out, big.NewInt(bpsDenominator))
	}
	out.Mul(amount, big.NewInt(bpsDenominator))
	return out.Quo(out, big.NewInt(int64(bpsDenominator-int(slippageBps))))
}
