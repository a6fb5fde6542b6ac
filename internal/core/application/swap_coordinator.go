package application

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	secretSize = 32
	// swap ids are kept within the integer precision of json numbers
	swapIDMask = 1<<53 - 1
)

// SwapCoordinator drives the swaps stored in one directory. It is bound
// to the runtime settings generation it was built for.
type SwapCoordinator struct {
	runtime    *SwapRuntime
	generation uint64
	store      ports.SwapSlateStore
	crypto     ports.Crypto
	peerHost   string
	peerPort   int
}

// Dir ...
func (c *SwapCoordinator) Dir() string {
	return c.store.Dir()
}

// Peer returns the swap peer the coordinator was built with.
func (c *SwapCoordinator) Peer() (string, int) {
	return c.peerHost, c.peerPort
}

// Init proposes a new swap as initiator: it generates the secret, its hash
// and the initiator key and writes both halves.
func (c *SwapCoordinator) Init(
	from, to string, fromAmount, toAmount, timeoutMinutes uint64,
) (*SwapInfo, error) {
	fromCurrency, err := domain.ParseCurrency(from)
	if err != nil {
		return nil, err
	}
	toCurrency, err := domain.ParseCurrency(to)
	if err != nil {
		return nil, err
	}

	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	id, err := c.newSwapID()
	if err != nil {
		return nil, err
	}
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, withOp("swap secret", err)
	}
	hash := sha256.Sum256(secret)
	privKey, pubKey, err := c.newKeyPair()
	if err != nil {
		return nil, err
	}

	pub, err := domain.NewSwapSlatePub(
		id, fromCurrency, toCurrency, fromAmount, toAmount, timeoutMinutes,
		c.runtime.now(), hex.EncodeToString(hash[:]), pubKey,
	)
	if err != nil {
		return nil, err
	}
	slate := &domain.SwapSlate{
		Pub: *pub,
		Prv: &domain.SwapSlatePrv{
			ID:         id,
			Role:       domain.RoleInitiator,
			Secret:     hex.EncodeToString(secret),
			PrivateKey: privKey,
		},
	}
	checksum, err := c.save(slate)
	if err != nil {
		return nil, err
	}

	c.transition(slate, "swap initiated")
	return c.info(slate, checksum), nil
}

// Accept makes this store the responder of a swap whose public half was
// imported: it creates the private half and adds the responder key.
func (c *SwapCoordinator) Accept(id uint64) (*SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate, _, err := c.load(id)
	if err != nil {
		return nil, err
	}
	if slate.Prv != nil || len(slate.Pub.ResponderPubKey) > 0 {
		return nil, domain.ErrSwapAlreadyExists
	}
	if slate.Pub.Phase != domain.SwapInit {
		return nil, domain.ErrSwapPhase
	}

	privKey, pubKey, err := c.newKeyPair()
	if err != nil {
		return nil, err
	}
	slate.Pub.ResponderPubKey = pubKey
	slate.Prv = &domain.SwapSlatePrv{
		ID:         id,
		Role:       domain.RoleResponder,
		PrivateKey: privKey,
	}
	checksum, err := c.save(slate)
	if err != nil {
		return nil, err
	}

	c.transition(slate, "swap accepted")
	return c.info(slate, checksum), nil
}

// Lock commits the local leg. The initiator needs the responder key, the
// responder needs the initiator leg locked, which is checked against the
// agreed terms.
func (c *SwapCoordinator) Lock(id uint64) (*SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate, err := c.loadVerified(id)
	if err != nil {
		return nil, err
	}
	pub, role := &slate.Pub, slate.Prv.Role

	switch pub.Phase {
	case domain.SwapCancelled:
		return nil, domain.ErrSwapAlreadyCancelled
	case domain.SwapExecuted:
		return nil, domain.ErrSwapAlreadyExecuted
	}
	if pub.LegLock(role) != nil {
		return nil, domain.ErrSwapLegAlreadyLocked
	}
	if len(pub.ResponderPubKey) <= 0 {
		return nil, domain.ErrSwapCounterpartyMissing
	}
	if role == domain.RoleResponder && pub.FromLock == nil {
		return nil, domain.ErrSwapCounterpartyMissing
	}
	if err := c.verifyCounterpartyLock(pub, role); err != nil {
		return nil, err
	}

	lock, err := c.buildLock(pub, role)
	if err != nil {
		return nil, err
	}
	if err := pub.SetLock(role, lock); err != nil {
		return nil, err
	}
	checksum, err := c.save(slate)
	if err != nil {
		return nil, err
	}

	c.transition(slate, "swap leg locked")
	return c.info(slate, checksum), nil
}

// Execute redeems the counterparty leg. The initiator reveals the secret
// doing so, the responder needs the secret revealed in an imported copy.
func (c *SwapCoordinator) Execute(id uint64) (*SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate, err := c.loadVerified(id)
	if err != nil {
		return nil, err
	}
	pub, prv := &slate.Pub, slate.Prv

	if prv.Redeem != nil {
		return nil, domain.ErrSwapAlreadyExecuted
	}
	if err := pub.CanExecute(); err != nil {
		return nil, err
	}

	var (
		secret string
		leg    *domain.LegLock
	)
	if prv.Role == domain.RoleInitiator {
		secret, leg = prv.Secret, pub.ToLock
	} else {
		if len(pub.RevealedSecret) <= 0 {
			return nil, domain.ErrSwapSecretNotRevealed
		}
		if !matchesHash(pub.RevealedSecret, pub.SecretHash) {
			return nil, domain.ErrSwapSecretMismatch
		}
		secret, leg = pub.RevealedSecret, pub.FromLock
	}
	if leg == nil {
		return nil, domain.ErrSwapPhase
	}

	if err := pub.Execute(secret); err != nil {
		return nil, err
	}
	prv.Redeem = c.runtime.schemes[leg.Currency].RedeemPlan(leg, secret)

	checksum, err := c.save(slate)
	if err != nil {
		return nil, err
	}

	c.transition(slate, "swap executed")
	return c.info(slate, checksum), nil
}

// Cancel aborts the swap. If the local leg holds collateral its timelock
// must have expired, and the refund plan is recorded.
func (c *SwapCoordinator) Cancel(id uint64) (*SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate, err := c.loadVerified(id)
	if err != nil {
		return nil, err
	}
	pub, prv := &slate.Pub, slate.Prv

	switch pub.Phase {
	case domain.SwapExecuted:
		return nil, domain.ErrSwapAlreadyExecuted
	case domain.SwapCancelled:
		return nil, domain.ErrSwapAlreadyCancelled
	}
	if leg := pub.LegLock(prv.Role); leg != nil {
		if c.runtime.now().Before(leg.Expiry) {
			return nil, domain.ErrSwapTimeoutNotReached
		}
		prv.Refund = c.runtime.schemes[leg.Currency].RefundPlan(leg)
	}

	if err := pub.Cancel(); err != nil {
		return nil, err
	}
	checksum, err := c.save(slate)
	if err != nil {
		return nil, err
	}

	c.transition(slate, "swap cancelled")
	return c.info(slate, checksum), nil
}

// Read returns the swap with the given id.
func (c *SwapCoordinator) Read(id uint64) (*SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate, buf, err := c.load(id)
	if err != nil {
		return nil, err
	}
	return c.info(slate, c.crypto.Checksum(buf)), nil
}

// List returns every swap of the directory. Halves that cannot be parsed
// are skipped.
func (c *SwapCoordinator) List() ([]SwapInfo, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	ids, err := c.store.List()
	if err != nil {
		return nil, withOp("list swaps", err)
	}
	infos := make([]SwapInfo, 0, len(ids))
	for _, id := range ids {
		slate, buf, err := c.load(id)
		if err != nil {
			log.WithError(err).WithField("swap_id", id).Warn("skipping swap")
			continue
		}
		infos = append(infos, *c.info(slate, c.crypto.Checksum(buf)))
	}
	return infos, nil
}

// Checksum returns the checksum of the public half as stored on disk.
func (c *SwapCoordinator) Checksum(id uint64) (string, error) {
	unlock, err := c.begin()
	if err != nil {
		return "", err
	}
	defer unlock()

	buf, err := c.store.LoadPub(id)
	if err != nil {
		return "", withOp("swap checksum", err)
	}
	return c.crypto.Checksum(buf), nil
}

// ExportPublic returns the public half to hand to the counterparty
// together with its checksum.
func (c *SwapCoordinator) ExportPublic(id uint64) ([]byte, string, error) {
	unlock, err := c.begin()
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	if _, err := c.loadVerified(id); err != nil {
		return nil, "", err
	}
	buf, err := c.store.LoadPub(id)
	if err != nil {
		return nil, "", withOp("export swap", err)
	}
	return buf, c.crypto.Checksum(buf), nil
}

// ImportPublic stores a public half received from the counterparty. The
// payload must match the given checksum and, if the swap is known, agree
// with the local copy without moving it backwards.
func (c *SwapCoordinator) ImportPublic(
	id uint64, payload []byte, checksum string,
) (*SwapInfo, error) {
	checksum = strings.TrimSpace(checksum)
	if c.crypto.Checksum(payload) != checksum {
		return nil, domain.ErrSwapChecksumMismatch
	}
	var pub domain.SwapSlatePub
	if err := json.Unmarshal(payload, &pub); err != nil {
		return nil, ErrMalformedSwapSlate
	}
	if pub.ID != id || id == 0 {
		return nil, ErrInvalidSwapID
	}
	if _, err := domain.NewSwapSlatePub(
		pub.ID, pub.FromCurrency, pub.ToCurrency, pub.FromAmount, pub.ToAmount,
		pub.TimeoutMinutes, pub.CreatedAt, pub.SecretHash, pub.InitiatorPubKey,
	); err != nil {
		return nil, err
	}

	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	slate := &domain.SwapSlate{Pub: pub}
	if c.store.Exists(id) {
		local, buf, err := c.load(id)
		if err != nil {
			return nil, err
		}
		if local.Prv != nil && c.crypto.Checksum(buf) != local.Prv.PubChecksum {
			return nil, domain.ErrSwapChecksumMismatch
		}
		if err := local.Pub.CanBeReplacedBy(&pub); err != nil {
			return nil, err
		}
		if local.Prv != nil {
			role := local.Prv.Role
			if own := local.Pub.LegLock(role); own != nil {
				if theirs := pub.LegLock(role); theirs == nil || theirs.Address != own.Address {
					return nil, domain.ErrSwapTermsMismatch
				}
			}
			if err := c.verifyCounterpartyLock(&pub, role); err != nil {
				return nil, err
			}
		}
		slate.Prv = local.Prv
	}

	if err := c.store.SavePub(id, payload); err != nil {
		return nil, withOp("import swap", err)
	}
	if slate.Prv != nil {
		slate.Prv.PubChecksum = checksum
		if err := c.savePrv(slate.Prv); err != nil {
			return nil, err
		}
	}

	c.transition(slate, "swap imported")
	return c.info(slate, checksum), nil
}

// Delete removes both halves of the swap.
func (c *SwapCoordinator) Delete(id uint64) error {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.store.Delete(id); err != nil {
		return withOp("delete swap", err)
	}
	log.WithField("swap_id", id).Info("swap deleted")
	return nil
}

// begin serializes the operation on the runtime and rejects handles built
// for older settings.
func (c *SwapCoordinator) begin() (func(), error) {
	c.runtime.lock.Lock()
	if c.generation != c.runtime.generation {
		c.runtime.lock.Unlock()
		return nil, domain.ErrStaleSwapHandle
	}
	return c.runtime.lock.Unlock, nil
}

func (c *SwapCoordinator) load(id uint64) (*domain.SwapSlate, []byte, error) {
	if !c.store.Exists(id) {
		return nil, nil, domain.ErrSwapNotFound
	}
	buf, err := c.store.LoadPub(id)
	if err != nil {
		return nil, nil, withOp("load swap", err)
	}
	slate := &domain.SwapSlate{}
	if err := json.Unmarshal(buf, &slate.Pub); err != nil {
		return nil, nil, ErrMalformedSwapSlate
	}
	if !c.store.HasPrivate(id) {
		return slate, buf, nil
	}

	prvBuf, err := c.store.LoadPrv(id)
	if err != nil {
		return nil, nil, withOp("load swap", err)
	}
	slate.Prv = &domain.SwapSlatePrv{}
	if err := json.Unmarshal(prvBuf, slate.Prv); err != nil {
		return nil, nil, ErrMalformedSwapSlate
	}
	return slate, buf, nil
}

// loadVerified loads a swap this store is a party of and checks that its
// public half was not changed behind the coordinator.
func (c *SwapCoordinator) loadVerified(id uint64) (*domain.SwapSlate, error) {
	slate, buf, err := c.load(id)
	if err != nil {
		return nil, err
	}
	if slate.Prv == nil {
		return nil, ErrSwapPrivateMissing
	}
	if c.crypto.Checksum(buf) != slate.Prv.PubChecksum {
		return nil, domain.ErrSwapChecksumMismatch
	}
	return slate, nil
}

// save writes the public half first and then the private one recording
// the new public checksum.
func (c *SwapCoordinator) save(slate *domain.SwapSlate) (string, error) {
	buf, err := json.MarshalIndent(slate.Pub, "", "  ")
	if err != nil {
		return "", withOp("save swap", err)
	}
	if err := c.store.SavePub(slate.Pub.ID, buf); err != nil {
		return "", withOp("save swap", err)
	}
	checksum := c.crypto.Checksum(buf)
	slate.Prv.PubChecksum = checksum
	if err := c.savePrv(slate.Prv); err != nil {
		return "", err
	}
	return checksum, nil
}

func (c *SwapCoordinator) savePrv(prv *domain.SwapSlatePrv) error {
	buf, err := json.MarshalIndent(prv, "", "  ")
	if err != nil {
		return withOp("save swap", err)
	}
	if err := c.store.SavePrv(prv.ID, buf); err != nil {
		return withOp("save swap", err)
	}
	return nil
}

// buildLock locks the leg of the role: the counterparty redeems it with
// the secret, the role refunds it after the expiry.
func (c *SwapCoordinator) buildLock(
	pub *domain.SwapSlatePub, role domain.SwapRole,
) (*domain.LegLock, error) {
	currency, amount, expiry := pub.Leg(role)
	scheme, ok := c.runtime.schemes[currency]
	if !ok {
		return nil, domain.ErrInvalidCurrency
	}
	redeemKey, refundKey := pub.ResponderPubKey, pub.InitiatorPubKey
	if role == domain.RoleResponder {
		redeemKey, refundKey = pub.InitiatorPubKey, pub.ResponderPubKey
	}
	return scheme.Lock(amount, redeemKey, refundKey, pub.SecretHash, expiry)
}

// verifyCounterpartyLock rebuilds the counterparty leg, if locked, and
// compares it with the one found in the slate.
func (c *SwapCoordinator) verifyCounterpartyLock(
	pub *domain.SwapSlatePub, role domain.SwapRole,
) error {
	other := domain.RoleResponder
	if role == domain.RoleResponder {
		other = domain.RoleInitiator
	}
	got := pub.LegLock(other)
	if got == nil {
		return nil
	}
	want, err := c.buildLock(pub, other)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCurrency) {
			return err
		}
		return domain.ErrSwapTermsMismatch
	}
	if got.Address != want.Address || got.Amount != want.Amount ||
		got.LockTime != want.LockTime {
		return domain.ErrSwapTermsMismatch
	}
	return nil
}

func (c *SwapCoordinator) newSwapID() (uint64, error) {
	buf := make([]byte, 8)
	for {
		if _, err := rand.Read(buf); err != nil {
			return 0, withOp("swap id", err)
		}
		id := binary.BigEndian.Uint64(buf) & swapIDMask
		if id != 0 && !c.store.Exists(id) {
			return id, nil
		}
	}
}

func (c *SwapCoordinator) newKeyPair() (string, string, error) {
	key, err := c.crypto.NewSecretKey()
	if err != nil {
		return "", "", withOp("swap key", err)
	}
	pub, err := c.crypto.PublicKey(key)
	if err != nil {
		return "", "", withOp("swap key", err)
	}
	return hex.EncodeToString(key), pub, nil
}

func (c *SwapCoordinator) transition(slate *domain.SwapSlate, msg string) {
	c.runtime.metrics.SwapTransition(slate.Pub.Phase.String())
	log.WithFields(log.Fields{
		"swap_id": slate.Pub.ID,
		"phase":   slate.Pub.Phase.String(),
		"from":    slate.Pub.FromCurrency.String(),
		"to":      slate.Pub.ToCurrency.String(),
	}).Info(msg)
}

func (c *SwapCoordinator) info(slate *domain.SwapSlate, checksum string) *SwapInfo {
	pub := &slate.Pub
	info := &SwapInfo{
		ID:             pub.ID,
		Phase:          pub.Phase.String(),
		FromCurrency:   pub.FromCurrency.String(),
		ToCurrency:     pub.ToCurrency.String(),
		FromAmount:     pub.FromAmount,
		ToAmount:       pub.ToAmount,
		TimeoutMinutes: pub.TimeoutMinutes,
		CreatedAt:      pub.CreatedAt,
		SecretHash:     pub.SecretHash,
		HasPrivate:     slate.Prv != nil,
		Checksum:       checksum,
	}
	if slate.Prv != nil {
		info.Role = slate.Prv.Role.String()
	}
	if pub.FromLock != nil {
		info.FromLockAddress = pub.FromLock.Address
	}
	if pub.ToLock != nil {
		info.ToLockAddress = pub.ToLock.Address
	}
	return info
}

func matchesHash(secret, hash string) bool {
	buf, err := hex.DecodeString(secret)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]) == strings.ToLower(hash)
}
