package services_test

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/services"
)

type namedService string

func (n namedService) ID() string { return string(n) }

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func lastEvent(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var event map[string]interface{}
	require.NoError(t, sonic.Unmarshal(lines[len(lines)-1], &event))
	return event
}

func TestServiceLoggerQuoteFields(t *testing.T) {
	buf := captureLogs(t)
	l := services.NewServiceLogger(namedService("sor-service"))

	in := domain.NewToken(1, common.HexToAddress("0x0a"), 18, "A")
	out := domain.NewToken(1, common.HexToAddress("0x0b"), 6, "B")
	l.Quote(domain.GivenOut, in, out).Info().Msg("swap routed")

	event := lastEvent(t, buf)
	assert.Equal(t, "sor-service", event["service"])
	assert.Equal(t, "GivenOut", event["swapKind"])
	assert.Equal(t, in.Address.Hex(), event["tokenIn"])
	assert.Equal(t, out.Address.Hex(), event["tokenOut"])
}

func TestServiceLoggerRefreshBlock(t *testing.T) {
	buf := captureLogs(t)
	l := services.NewServiceLogger(namedService("sor-service"))

	l.Refresh(nil).Info().Msg("pool set refreshed")
	assert.Equal(t, "latest", lastEvent(t, buf)["block"])

	block := uint64(19_000_000)
	l.Refresh(&block).Info().Msg("pool set refreshed")
	assert.Equal(t, float64(19_000_000), lastEvent(t, buf)["block"])
}
