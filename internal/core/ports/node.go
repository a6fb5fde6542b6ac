package ports

import "context"

type NodeOutput interface {
	GetCommit() string
	GetHeight() uint64
	IsCoinbase() bool
}

type NodeKernel interface {
	GetExcess() string
	GetHeight() uint64
}

type NodeClient interface {
	ChainHeight(ctx context.Context) (uint64, error)
	PostTx(ctx context.Context, tx []byte, fluff bool) error
	GetOutputs(ctx context.Context, commits []string) ([]NodeOutput, error)
	GetKernel(ctx context.Context, excess string) (NodeKernel, error)
	URL() string
	Close()
}

// NodeClientFactory builds a client for the given node url.
type NodeClientFactory func(url string) (NodeClient, error)
