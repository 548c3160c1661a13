package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
)

const fileProviderName = "file"

type poolFile struct {
	Pools               []domain.RawPool `json:"pools"`
	SyncedToBlockNumber *uint64          `json:"syncedToBlockNumber,omitempty"`
}

// FilePoolProvider serves pools from a JSON snapshot: either an object with a
// "pools" array or a bare array of pools.
type FilePoolProvider struct {
	path string
}

func NewFilePoolProvider(path string) *FilePoolProvider {
	return &FilePoolProvider{path: path}
}

func (p *FilePoolProvider) GetPools(_ context.Context, opts GetPoolsOptions) (GetPoolsResponse, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderFetchDuration.WithLabelValues(fileProviderName).Observe(time.Since(start).Seconds())
	}()

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return GetPoolsResponse{}, fmt.Errorf("read pool file: %w", err)
	}

	var snapshot poolFile
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = sonic.Unmarshal(trimmed, &snapshot.Pools)
	} else {
		err = sonic.Unmarshal(raw, &snapshot)
	}
	if err != nil {
		return GetPoolsResponse{}, fmt.Errorf("decode pool file %s: %w", p.path, err)
	}

	return GetPoolsResponse{
		Pools:               filterPoolTypes(snapshot.Pools, opts.PoolTypes),
		SyncedToBlockNumber: snapshot.SyncedToBlockNumber,
	}, nil
}

// WritePoolFile stores pools in the format FilePoolProvider reads.
func WritePoolFile(path string, resp GetPoolsResponse) error {
	data, err := sonic.ConfigStd.MarshalIndent(poolFile{Pools: resp.Pools, SyncedToBlockNumber: resp.SyncedToBlockNumber}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pool file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
