// Package vectorutils is the vector store utility package
package vectorutils

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/vector"
	"github.com/webtechie/docschat/pkg/vector/memory"
	"github.com/webtechie/docschat/pkg/vector/qdrant"
	"github.com/webtechie/docschat/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

// NewVectorDriver builds a vector.Driver for the configured provider.
//
//   - "memory": in-process brute-force cosine store (Target ignored)
//   - "sqlitevec": sqlite-vec store; Target is the DB path, ":memory:" default
//   - "qdrant": Qdrant server; Target is host:port of the gRPC endpoint
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "", "memory":
		return memory.NewDriver(o.Logger), nil

	case "sqlitevec":
		dbPath := o.Target
		if dbPath == "" {
			dbPath = ":memory:"
		}
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     dbPath,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "qdrant":
		host, portStr, err := net.SplitHostPort(o.Target)
		if err != nil {
			return nil, fmt.Errorf("qdrant target must be host:port: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("qdrant target port: %w", err)
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:       host,
			Port:       port,
			Collection: o.Collection,
			Dimensions: uint64(o.Dimensions),
		}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
