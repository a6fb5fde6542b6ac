package dbbadger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	dbbadger "github.com/mwswap/mwswapd/internal/infrastructure/storage/db/badger"
	"github.com/stretchr/testify/require"
)

func TestRepoManager(t *testing.T) {
	t.Run("outputs", testOutputs())
	t.Run("lock and unlock", testLockUnlock())
	t.Run("tx log", testTxLog())
	t.Run("accounts", testAccounts())
	t.Run("slates", testSlates())
	t.Run("transaction rollback", testRollback())
	t.Run("persistence", testPersistence())
}

func newRepoManager(t *testing.T) ports.RepoManager {
	repoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	t.Cleanup(repoManager.Close)
	return repoManager
}

func testOutputs() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repo := newRepoManager(t).OutputRepository()

		outputs := []domain.Output{
			{Commit: "08aa", Value: 10, Status: domain.OutputUnspent, Height: 5, AccountLabel: "default", KeyPath: "m/0/0/0"},
			{Commit: "08bb", Value: 20, Status: domain.OutputUnconfirmed, AccountLabel: "default", KeyPath: "m/0/0/1", TxLogID: 3},
			{Commit: "09cc", Value: 30, Status: domain.OutputUnspent, Height: 6, AccountLabel: "savings", KeyPath: "m/1/0/0"},
		}
		require.NoError(t, repo.AddOutputs(ctx, outputs))
		require.ErrorIs(
			t, repo.AddOutputs(ctx, outputs[:1]), dbbadger.ErrOutputAlreadyExists,
		)

		all, err := repo.GetAllOutputs(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)

		unspents, err := repo.GetUnspentOutputsForAccount(ctx, "default")
		require.NoError(t, err)
		require.Len(t, unspents, 1)
		require.Equal(t, "08aa", unspents[0].Commit)

		linked, err := repo.GetOutputsForTxLog(ctx, 3)
		require.NoError(t, err)
		require.Len(t, linked, 1)
		require.Equal(t, "08bb", linked[0].Commit)

		require.NoError(t, repo.UpdateOutput(
			ctx, "08bb", func(o *domain.Output) (*domain.Output, error) {
				o.Confirm(7)
				return o, nil
			},
		))
		o, err := repo.GetOutput(ctx, "08bb")
		require.NoError(t, err)
		require.Equal(t, domain.OutputUnspent, o.Status)
		require.Equal(t, uint64(7), o.Height)

		require.NoError(t, repo.DeleteOutput(ctx, "08bb"))
		_, err = repo.GetOutput(ctx, "08bb")
		require.ErrorIs(t, err, domain.ErrOutputNotFound)
		require.ErrorIs(t, repo.DeleteOutput(ctx, "08bb"), domain.ErrOutputNotFound)
	}
}

func testLockUnlock() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repo := newRepoManager(t).OutputRepository()

		require.NoError(t, repo.AddOutputs(ctx, []domain.Output{
			{Commit: "08aa", Value: 10, Status: domain.OutputUnspent, Height: 1},
			{Commit: "08bb", Value: 20, Status: domain.OutputUnspent, Height: 1},
			{Commit: "08cc", Value: 30, Status: domain.OutputUnconfirmed},
		}))

		require.NoError(t, repo.LockOutputs(ctx, []string{"08aa", "08bb"}, "slate-1"))
		require.ErrorIs(
			t, repo.LockOutputs(ctx, []string{"08aa"}, "slate-2"),
			domain.ErrOutputNotSpendable,
		)
		require.ErrorIs(
			t, repo.LockOutputs(ctx, []string{"08cc"}, "slate-2"),
			domain.ErrOutputNotSpendable,
		)

		locked, err := repo.GetOutputsLockedBy(ctx, "slate-1")
		require.NoError(t, err)
		require.Len(t, locked, 2)

		count, err := repo.UnlockOutputs(ctx, "slate-1")
		require.NoError(t, err)
		require.Equal(t, 2, count)

		count, err = repo.UnlockOutputs(ctx, "slate-1")
		require.NoError(t, err)
		require.Zero(t, count)
	}
}

func testTxLog() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repo := newRepoManager(t).TxLogRepository()

		_, err := repo.AddEntry(ctx, nil)
		require.ErrorIs(t, err, dbbadger.ErrNullEntry)

		first := &domain.TxLogEntry{SlateID: "a", Type: domain.TxSent, AmountDebited: 10}
		id, err := repo.AddEntry(ctx, first)
		require.NoError(t, err)
		require.Equal(t, uint64(1), id)
		require.Equal(t, id, first.ID)

		id, err = repo.AddEntry(ctx, &domain.TxLogEntry{SlateID: "b", Type: domain.TxReceived})
		require.NoError(t, err)
		require.Equal(t, uint64(2), id)

		entry, err := repo.GetEntryBySlateID(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, uint64(2), entry.ID)

		_, err = repo.GetEntryBySlateID(ctx, "c")
		require.ErrorIs(t, err, domain.ErrTxNotFound)
		_, err = repo.GetEntry(ctx, 99)
		require.ErrorIs(t, err, domain.ErrTxNotFound)

		require.NoError(t, repo.UpdateEntry(
			ctx, 1, func(e *domain.TxLogEntry) (*domain.TxLogEntry, error) {
				if err := e.Cancel(); err != nil {
					return nil, err
				}
				return e, nil
			},
		))
		entry, err = repo.GetEntry(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, domain.TxSentCancelled, entry.Type)

		entries, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, uint64(1), entries[0].ID)
	}
}

func testAccounts() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repo := newRepoManager(t).AccountRepository()

		active, err := repo.GetActiveAccount(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.DefaultAccountLabel, active)

		def, err := domain.NewAccount(domain.DefaultAccountLabel, 0)
		require.NoError(t, err)
		savings, err := domain.NewAccount("savings", 1)
		require.NoError(t, err)

		require.NoError(t, repo.AddAccount(ctx, savings))
		require.NoError(t, repo.AddAccount(ctx, def))
		require.ErrorIs(t, repo.AddAccount(ctx, def), domain.ErrAccountAlreadyExists)

		accounts, err := repo.GetAllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		require.Equal(t, domain.DefaultAccountLabel, accounts[0].Label)

		require.ErrorIs(t, repo.SetActiveAccount(ctx, "missing"), domain.ErrAccountNotFound)
		require.NoError(t, repo.SetActiveAccount(ctx, "savings"))
		active, err = repo.GetActiveAccount(ctx)
		require.NoError(t, err)
		require.Equal(t, "savings", active)

		require.NoError(t, repo.UpdateAccount(
			ctx, "savings", func(a *domain.Account) (*domain.Account, error) {
				a.NextKeyPath()
				return a, nil
			},
		))
		account, err := repo.GetAccount(ctx, "savings")
		require.NoError(t, err)
		require.Equal(t, uint32(1), account.NextChild)
	}
}

func testSlates() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repo := newRepoManager(t).SlateRepository()

		slate, err := domain.NewSendSlate(100, 2, 0)
		require.NoError(t, err)
		require.NoError(t, slate.AddParticipant(domain.ParticipantData{
			IsSender: true, PublicBlindExcess: "02aa", PublicNonce: "03bb",
		}))
		require.NoError(t, repo.SaveSlate(ctx, slate))

		got, err := repo.GetSlate(ctx, slate.ID.String())
		require.NoError(t, err)
		require.Equal(t, slate.ID, got.ID)
		require.Equal(t, domain.SlateStandard1, got.State)
		require.Equal(t, slate.Participants, got.Participants)

		_, err = repo.GetSlate(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrSlateNotFound)

		sctx := &domain.SlateContext{
			SlateID: slate.ID.String(), AccountLabel: "default",
			SecretExcess: "aa", SecretNonce: "bb", PublicExcess: "02aa",
		}
		require.NoError(t, repo.SaveContext(ctx, sctx))
		gotCtx, err := repo.GetContext(ctx, sctx.SlateID)
		require.NoError(t, err)
		require.Equal(t, *sctx, *gotCtx)

		require.NoError(t, repo.DeleteContext(ctx, sctx.SlateID))
		require.NoError(t, repo.DeleteContext(ctx, sctx.SlateID))
		_, err = repo.GetContext(ctx, sctx.SlateID)
		require.ErrorIs(t, err, domain.ErrSlateNotFound)
	}
}

func testRollback() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		repoManager := newRepoManager(t)
		failure := errors.New("boom")

		_, err := repoManager.RunTransaction(
			ctx, false, func(ctx context.Context) (interface{}, error) {
				if err := repoManager.OutputRepository().AddOutputs(
					ctx, []domain.Output{{Commit: "08aa", Value: 1}},
				); err != nil {
					return nil, err
				}
				if _, err := repoManager.TxLogRepository().AddEntry(
					ctx, &domain.TxLogEntry{SlateID: "a"},
				); err != nil {
					return nil, err
				}
				return nil, failure
			},
		)
		require.ErrorIs(t, err, failure)

		outputs, err := repoManager.OutputRepository().GetAllOutputs(ctx)
		require.NoError(t, err)
		require.Empty(t, outputs)
		entries, err := repoManager.TxLogRepository().GetAllEntries(ctx)
		require.NoError(t, err)
		require.Empty(t, entries)

		res, err := repoManager.RunTransaction(
			ctx, false, func(ctx context.Context) (interface{}, error) {
				if err := repoManager.OutputRepository().AddOutputs(
					ctx, []domain.Output{{Commit: "08aa", Value: 1}},
				); err != nil {
					return nil, err
				}
				return "ok", nil
			},
		)
		require.NoError(t, err)
		require.Equal(t, "ok", res)

		res, err = repoManager.RunTransaction(
			ctx, true, func(ctx context.Context) (interface{}, error) {
				return repoManager.OutputRepository().GetOutput(ctx, "08aa")
			},
		)
		require.NoError(t, err)
		require.Equal(t, uint64(1), res.(*domain.Output).Value)
	}
}

func testPersistence() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()

		repoManager, err := dbbadger.NewRepoManager(dir, nil)
		require.NoError(t, err)
		id, err := repoManager.TxLogRepository().AddEntry(
			ctx, &domain.TxLogEntry{SlateID: "a"},
		)
		require.NoError(t, err)
		repoManager.Close()

		repoManager, err = dbbadger.NewRepoManager(dir, nil)
		require.NoError(t, err)
		defer repoManager.Close()

		entry, err := repoManager.TxLogRepository().GetEntry(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "a", entry.SlateID)

		next, err := repoManager.TxLogRepository().AddEntry(
			ctx, &domain.TxLogEntry{SlateID: "b"},
		)
		require.NoError(t, err)
		require.Greater(t, next, id)
	}
}
