package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/internal/infrastructure/codec/slatepack"
	"github.com/mwswap/mwswapd/internal/infrastructure/crypto/secp"
	"github.com/mwswap/mwswapd/internal/infrastructure/keychain"
	dbbadger "github.com/mwswap/mwswapd/internal/infrastructure/storage/db/badger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errNodeDown = errors.New("connection refused")

func TestNodeCollaborator(t *testing.T) {
	t.Run("tip failure", testNodeTipFailure())
	t.Run("switch node", testSwitchNode())
}

func testNodeTipFailure() func(t *testing.T) {
	return func(t *testing.T) {
		node := &mockNodeClient{}
		node.On("ChainHeight", mock.Anything).Return(uint64(0), errNodeDown)

		svc := newMockedWalletService(t, map[string]*mockNodeClient{nodeURL: node})

		_, err := svc.NodeTip(ctx)
		require.ErrorIs(t, err, errNodeDown)
		require.True(t, domain.IsKind(err, domain.KindCollaborator))
		node.AssertExpectations(t)
	}
}

func testSwitchNode() func(t *testing.T) {
	return func(t *testing.T) {
		const (
			otherURL  = "https://node.example.org"
			brokenURL = "https://broken.example.org"
		)
		first := &mockNodeClient{url: nodeURL}
		first.On("Close").Return()
		second := &mockNodeClient{url: otherURL}
		second.On("ChainHeight", mock.Anything).Return(uint64(42), nil)

		svc := newMockedWalletService(t, map[string]*mockNodeClient{
			nodeURL:  first,
			otherURL: second,
		})

		err := svc.UpdateNodeURL(brokenURL)
		require.Error(t, err)
		require.Equal(t, nodeURL, svc.NodeURL())
		first.AssertNotCalled(t, "Close")

		require.NoError(t, svc.UpdateNodeURL(otherURL))
		require.Equal(t, otherURL, svc.NodeURL())
		first.AssertCalled(t, "Close")

		tip, err := svc.NodeTip(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(42), tip)
		second.AssertExpectations(t)
	}
}

// newMockedWalletService builds a service whose node factory only knows the
// given urls.
func newMockedWalletService(
	t *testing.T, nodes map[string]*mockNodeClient,
) *application.WalletService {
	svc, err := application.NewWalletService(application.WalletServiceOpts{
		Config: application.WalletConfig{NodeURL: nodeURL},
		Crypto: secp.NewService(),
		Codec:  slatepack.NewCodec(slatepack.MainnetHRP),
		KeychainFactory: func(dataDir string) ports.Keychain {
			return keychain.NewKeychain(dataDir)
		},
		RepoManagerFactory: func(string) (ports.RepoManager, error) {
			return dbbadger.NewRepoManager("", nil)
		},
		NodeClientFactory: func(url string) (ports.NodeClient, error) {
			node, ok := nodes[url]
			if !ok {
				return nil, errNodeDown
			}
			return node, nil
		},
	})
	require.NoError(t, err)
	return svc
}

type mockNodeClient struct {
	mock.Mock
	url string
}

func (m *mockNodeClient) ChainHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockNodeClient) PostTx(ctx context.Context, tx []byte, fluff bool) error {
	args := m.Called(ctx, tx, fluff)
	return args.Error(0)
}

func (m *mockNodeClient) GetOutputs(
	ctx context.Context, commits []string,
) ([]ports.NodeOutput, error) {
	args := m.Called(ctx, commits)
	var res []ports.NodeOutput
	if a := args.Get(0); a != nil {
		res = a.([]ports.NodeOutput)
	}
	return res, args.Error(1)
}

func (m *mockNodeClient) GetKernel(
	ctx context.Context, excess string,
) (ports.NodeKernel, error) {
	args := m.Called(ctx, excess)
	var res ports.NodeKernel
	if a := args.Get(0); a != nil {
		res = a.(ports.NodeKernel)
	}
	return res, args.Error(1)
}

func (m *mockNodeClient) URL() string {
	if len(m.url) > 0 {
		return m.url
	}
	return nodeURL
}

func (m *mockNodeClient) Close() {
	m.Called()
}
