package http

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/balancer-sor/internal/http/httputil"
)

type SwapHandler struct {
	sorSvc SORService
}

func NewSwapHandler(sorSvc SORService) *SwapHandler {
	return &SwapHandler{sorSvc: sorSvc}
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/calldata", h.getCallData)
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

// CallDataResponse is the eth_call that re-prices a quote on chain
type CallDataResponse struct {
	// BalancerQueries contract address
	To string `json:"to"`

	// ABI encoded querySwap or queryBatchSwap call
	Data string `json:"data"`

	// Method is querySwap for a single one hop path, queryBatchSwap otherwise
	Method string `json:"method"`

	// Off-chain amounts the call is expected to reproduce
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

// @Summary Build query call data
// @Description Routes the request like /quote and returns the BalancerQueries call that verifies it.
// @Tags swap
// @Produce json
// @Param tokenIn query string true "Input token address"
// @Param tokenOut query string true "Output token address"
// @Param amount query string true "Amount in smallest units"
// @Param swapKind query string true "GivenIn or GivenOut"
// @Success 200 {object} CallDataResponse
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response "No route found"
// @Router /api/v1/swap/calldata [get]
func (h *SwapHandler) getCallData(c *gin.Context) {
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

	to, err := sw.QueriesAddress()
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	data, err := sw.QueryCallData()
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	method := "querySwap"
	if sw.IsBatchSwap() {
		method = "queryBatchSwap"
	}
	httputil.HandleSuccess(c, CallDataResponse{
		To:        to.Hex(),
		Data:      hexutil.Encode(data),
		Method:    method,
		AmountIn:  sw.InputAmount().Amount.Dec(),
		AmountOut: sw.OutputAmount().Amount.Dec(),
	})
}
