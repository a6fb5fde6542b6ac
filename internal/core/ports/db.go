package ports

import (
	"context"

	"github.com/mwswap/mwswapd/internal/core/domain"
)

type RepoManager interface {
	OutputRepository() domain.OutputRepository
	TxLogRepository() domain.TxLogRepository
	AccountRepository() domain.AccountRepository
	SlateRepository() domain.SlateRepository

	// RunTransaction runs the handler inside a single db transaction: either
	// every write made through the repositories with the given ctx is
	// committed or none is.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
