package application

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// contextKeyPath derives the key protecting the slate contexts at rest. It
// lives outside of any account path.
const contextKeyPath = "m/0/2/0"

// KeychainFactory returns the keychain rooted at the given data dir.
type KeychainFactory func(dataDir string) ports.Keychain

// RepoManagerFactory opens the wallet stores rooted at the given data dir.
type RepoManagerFactory func(dataDir string) (ports.RepoManager, error)

// WalletServiceOpts groups the collaborators of a WalletService.
type WalletServiceOpts struct {
	Config             WalletConfig
	Crypto             ports.Crypto
	Codec              ports.SlateCodec
	KeychainFactory    KeychainFactory
	RepoManagerFactory RepoManagerFactory
	NodeClientFactory  ports.NodeClientFactory
	Metrics            ports.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (o WalletServiceOpts) validate() error {
	if o.Crypto == nil {
		return errors.New("missing crypto service")
	}
	if o.Codec == nil {
		return errors.New("missing slate codec")
	}
	if o.KeychainFactory == nil {
		return errors.New("missing keychain factory")
	}
	if o.RepoManagerFactory == nil {
		return errors.New("missing repo manager factory")
	}
	if o.NodeClientFactory == nil {
		return errors.New("missing node client factory")
	}
	return nil
}

type session struct {
	dataDir    string
	keychain   ports.Keychain
	mask       []byte
	repos      ports.RepoManager
	addressKey ed25519.PrivateKey
	contextKey []byte
}

// WalletService is the wallet session. It must be opened (or created, or
// restored) before any negotiation and it serializes every operation
// touching outputs, ledger or keys.
type WalletService struct {
	lock sync.Mutex

	cfg            WalletConfig
	crypto         ports.Crypto
	codec          ports.SlateCodec
	newKeychain    KeychainFactory
	newRepoManager RepoManagerFactory
	newNodeClient  ports.NodeClientFactory
	metrics        ports.Metrics
	now            func() time.Time

	node ports.NodeClient
	sess *session
}

// NewWalletService ...
func NewWalletService(opts WalletServiceOpts) (*WalletService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config.withDefaults()
	if !isValidNodeURL(cfg.NodeURL) {
		return nil, domain.ErrInvalidNodeURL
	}
	node, err := opts.NodeClientFactory(cfg.NodeURL)
	if err != nil {
		return nil, withOp("node", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &WalletService{
		cfg:            cfg,
		crypto:         opts.Crypto,
		codec:          opts.Codec,
		newKeychain:    opts.KeychainFactory,
		newRepoManager: opts.RepoManagerFactory,
		newNodeClient:  opts.NodeClientFactory,
		metrics:        metrics,
		now:            clock,
		node:           node,
	}, nil
}

// Create makes a new keychain in the data dir, opens the session on it and
// returns the mnemonic to back up.
func (w *WalletService) Create(
	ctx context.Context, dataDir, passphrase string, mnemonicWords int,
) ([]string, error) {
	if len(passphrase) <= 0 {
		return nil, domain.ErrEmptyPassphrase
	}
	if mnemonicWords <= 0 {
		mnemonicWords = DefaultMnemonicWords
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.sess != nil {
		return nil, domain.ErrWalletAlreadyOpen
	}
	kc := w.newKeychain(dataDir)
	if kc.Exists() {
		return nil, ErrKeychainExists
	}

	mnemonic, err := kc.Create(passphrase, mnemonicWords)
	if err != nil {
		return nil, withOp("create", err)
	}
	if err := w.openSession(ctx, kc, dataDir, passphrase); err != nil {
		return nil, err
	}

	log.WithField("datadir", dataDir).Info("wallet created")
	return mnemonic, nil
}

// Restore rebuilds the keychain from the given mnemonic and opens the
// session on it. Outputs are found by a following Scan.
func (w *WalletService) Restore(
	ctx context.Context, dataDir, passphrase string, mnemonic []string,
) error {
	if len(passphrase) <= 0 {
		return domain.ErrEmptyPassphrase
	}
	if len(mnemonic) <= 0 {
		return domain.ErrInvalidMnemonic
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.sess != nil {
		return domain.ErrWalletAlreadyOpen
	}
	kc := w.newKeychain(dataDir)
	if kc.Exists() {
		return ErrKeychainExists
	}

	if err := kc.Recover(passphrase, mnemonic); err != nil {
		if errors.Is(err, wallet.ErrInvalidMnemonic) {
			return domain.ErrInvalidMnemonic
		}
		return withOp("restore", err)
	}
	if err := w.openSession(ctx, kc, dataDir, passphrase); err != nil {
		return err
	}

	log.WithField("datadir", dataDir).Info("wallet restored")
	return nil
}

// Open unlocks the keychain found in the data dir.
func (w *WalletService) Open(
	ctx context.Context, dataDir, passphrase string,
) error {
	if len(passphrase) <= 0 {
		return domain.ErrEmptyPassphrase
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.sess != nil {
		return domain.ErrWalletAlreadyOpen
	}
	kc := w.newKeychain(dataDir)
	if !kc.Exists() {
		return ErrNoKeychain
	}
	if err := w.openSession(ctx, kc, dataDir, passphrase); err != nil {
		return err
	}

	log.WithField("datadir", dataDir).Info("wallet opened")
	return nil
}

// Close ends the session and locks the keychain.
func (w *WalletService) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.sess == nil {
		return domain.ErrWalletNotOpen
	}
	w.closeSession()
	log.Info("wallet closed")
	return nil
}

// IsOpen ...
func (w *WalletService) IsOpen() bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.sess != nil
}

// SeedPhrase returns the mnemonic of the keychain in the data dir. It does
// not need an open session.
func (w *WalletService) SeedPhrase(dataDir, passphrase string) ([]string, error) {
	if len(passphrase) <= 0 {
		return nil, domain.ErrEmptyPassphrase
	}
	kc := w.newKeychain(dataDir)
	if !kc.Exists() {
		return nil, ErrNoKeychain
	}
	mnemonic, err := kc.Mnemonic(passphrase)
	if err != nil {
		return nil, withOp("seed phrase", err)
	}
	return mnemonic, nil
}

// UpdateNodeURL switches to another node. On error the previous node is
// kept.
func (w *WalletService) UpdateNodeURL(url string) error {
	url = strings.TrimSpace(url)
	if !isValidNodeURL(url) {
		return domain.ErrInvalidNodeURL
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if url == w.node.URL() {
		return nil
	}
	client, err := w.newNodeClient(url)
	if err != nil {
		return withOp("update node url", err)
	}

	old := w.node
	w.node = client
	old.Close()

	log.WithField("url", url).Info("node url updated")
	return nil
}

// NodeURL ...
func (w *WalletService) NodeURL() string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.node.URL()
}

// NodeTip returns the chain height as seen by the configured node.
func (w *WalletService) NodeTip(ctx context.Context) (uint64, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.chainTip(ctx)
}

// SlatepackAddress returns the address counterparties use to reach this
// wallet.
func (w *WalletService) SlatepackAddress() (string, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	return w.ownAddress(sess)
}

// Info returns the chain tip and the funds of the active account.
func (w *WalletService) Info(ctx context.Context, refresh bool) (*WalletInfo, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	if refresh {
		if _, err := w.scan(ctx, sess, false, 0, 0); err != nil {
			return nil, err
		}
	}

	tip, err := w.chainTip(ctx)
	if err != nil {
		return nil, err
	}
	account, err := sess.repos.AccountRepository().GetActiveAccount(ctx)
	if err != nil {
		return nil, withOp("info", err)
	}
	summary, err := w.summary(ctx, sess, account, tip)
	if err != nil {
		return nil, err
	}

	return &WalletInfo{
		LastHeight:    tip,
		ActiveAccount: account,
		Summary:       *summary,
	}, nil
}

// Balance returns the funds of the active account.
func (w *WalletService) Balance(ctx context.Context, refresh bool) (*Summary, error) {
	info, err := w.Info(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return &info.Summary, nil
}

// Negotiator returns the slate negotiator bound to this session.
func (w *WalletService) Negotiator() *SlateNegotiator {
	return &SlateNegotiator{w}
}

// Outputs returns the output tracker bound to this session.
func (w *WalletService) Outputs() *OutputTracker {
	return &OutputTracker{w}
}

// Ledger returns the transaction ledger bound to this session.
func (w *WalletService) Ledger() *TransactionLedger {
	return &TransactionLedger{w}
}

// PaymentProofs returns the payment proof service bound to this session.
func (w *WalletService) PaymentProofs() *PaymentProofService {
	return &PaymentProofService{w}
}

func (w *WalletService) openSession(
	ctx context.Context, kc ports.Keychain, dataDir, passphrase string,
) error {
	mask, err := kc.Open(passphrase)
	if err != nil {
		return withOp("open", err)
	}

	sess := &session{dataDir: dataDir, keychain: kc, mask: mask}
	if sess.addressKey, err = kc.AddressKey(mask, 0); err != nil {
		kc.Close()
		return withOp("open", err)
	}
	if sess.contextKey, err = kc.DeriveKey(mask, contextKeyPath); err != nil {
		kc.Close()
		return withOp("open", err)
	}

	repos, err := w.newRepoManager(dataDir)
	if err != nil {
		kc.Close()
		return withOp("open", err)
	}
	sess.repos = repos

	if err := ensureDefaultAccount(ctx, repos); err != nil {
		repos.Close()
		kc.Close()
		return withOp("open", err)
	}

	w.sess = sess
	return nil
}

func (w *WalletService) closeSession() {
	w.sess.repos.Close()
	w.sess.keychain.Close()
	for i := range w.sess.mask {
		w.sess.mask[i] = 0
	}
	w.sess = nil
}

func (w *WalletService) session() (*session, error) {
	if w.sess == nil {
		return nil, domain.ErrWalletNotOpen
	}
	return w.sess, nil
}

func (w *WalletService) chainTip(ctx context.Context) (uint64, error) {
	tip, err := w.node.ChainHeight(ctx)
	if err != nil {
		return 0, withOp("chain height", err)
	}
	return tip, nil
}

func (w *WalletService) ownAddress(sess *session) (string, error) {
	addr, err := w.codec.FormatAddress(w.ownAddressKey(sess))
	if err != nil {
		return "", withOp("slatepack address", err)
	}
	return addr, nil
}

func (w *WalletService) ownAddressKey(sess *session) ed25519.PublicKey {
	return sess.addressKey.Public().(ed25519.PublicKey)
}

func (w *WalletService) deriveKey(sess *session, path string) ([]byte, error) {
	key, err := sess.keychain.DeriveKey(sess.mask, path)
	if err != nil {
		return nil, withOp("derive key", err)
	}
	return key, nil
}

func (w *WalletService) summary(
	ctx context.Context, sess *session, account string, tip uint64,
) (*Summary, error) {
	outputs, err := sess.repos.OutputRepository().GetAllOutputs(ctx)
	if err != nil {
		return nil, withOp("summary", err)
	}

	s := &Summary{}
	for _, o := range outputs {
		if o.AccountLabel != account || o.Status == domain.OutputSpent {
			continue
		}
		s.Total += o.Value
		switch {
		case o.Status == domain.OutputUnconfirmed:
			s.AwaitingConfirmation += o.Value
		case o.IsLocked():
			s.Locked += o.Value
		case !o.IsMature(tip):
			s.Immature += o.Value
		case o.Confirmations(tip) < w.cfg.MinConfirmations:
			s.AwaitingConfirmation += o.Value
		default:
			s.Spendable += o.Value
		}
	}
	return s, nil
}

func ensureDefaultAccount(ctx context.Context, repos ports.RepoManager) error {
	_, err := repos.AccountRepository().GetAccount(ctx, domain.DefaultAccountLabel)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	account, err := domain.NewAccount(domain.DefaultAccountLabel, 0)
	if err != nil {
		return err
	}
	return repos.AccountRepository().AddAccount(ctx, account)
}

func isValidNodeURL(url string) bool {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false
	}
	return govalidator.IsURL(url)
}

type noopMetrics struct{}

func (noopMetrics) SlateTransition(string) {}

func (noopMetrics) SwapTransition(string) {}

func (noopMetrics) NodeRequest(string, error) {}
