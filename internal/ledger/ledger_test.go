package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	ledger *Ledger
	mint   solana.PublicKey
	auth   solana.PublicKey
	alice  solana.PublicKey
	bob    solana.PublicKey
	aliceA solana.PublicKey
	bobA   solana.PublicKey
}

func newFixture(t *testing.T, fund uint64) fixture {
	t.Helper()
	f := fixture{
		ledger: New(WithClock(func() time.Time { return time.Unix(1700000000, 0) })),
		mint:   solana.NewWallet().PublicKey(),
		auth:   solana.NewWallet().PublicKey(),
		alice:  solana.NewWallet().PublicKey(),
		bob:    solana.NewWallet().PublicKey(),
		aliceA: solana.NewWallet().PublicKey(),
		bobA:   solana.NewWallet().PublicKey(),
	}
	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.auth, f.alice, f.bob}, func(tx *Tx) error {
		if err := tx.CreateMint(f.mint, 6, f.auth, f.auth); err != nil {
			return err
		}
		if err := tx.CreateTokenAccount(f.aliceA, f.mint, f.alice); err != nil {
			return err
		}
		if err := tx.CreateTokenAccount(f.bobA, f.mint, f.bob); err != nil {
			return err
		}
		return tx.MintTo(f.mint, f.aliceA, f.auth, fund)
	})
	require.NoError(t, err)
	return f
}

func balance(t *testing.T, l *Ledger, addr solana.PublicKey) uint64 {
	t.Helper()
	acc, ok := l.TokenAccount(addr)
	require.True(t, ok)
	return acc.Amount
}

func TestUpdateCommitsTransferAndLog(t *testing.T) {
	f := newFixture(t, 1000)
	program := solana.NewWallet().PublicKey()

	receipt, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.alice, f.bob}, func(tx *Tx) error {
		if err := tx.Transfer(f.aliceA, f.bobA, f.alice, 400); err != nil {
			return err
		}
		return tx.Emit(program, []byte("moved"))
	})
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	require.Equal(t, uint64(1), receipt.Logs[0].Seq)
	require.Equal(t, receipt.TxID, receipt.Logs[0].TxID)
	require.Equal(t, int64(1700000000), receipt.Timestamp)

	require.Equal(t, uint64(600), balance(t, f.ledger, f.aliceA))
	require.Equal(t, uint64(400), balance(t, f.ledger, f.bobA))
	require.Len(t, f.ledger.Logs(0), 1)
	require.Empty(t, f.ledger.Logs(1))
}

func TestUpdateRollsBackOnError(t *testing.T) {
	f := newFixture(t, 1000)
	boom := errors.New("boom")

	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.alice, f.bob}, func(tx *Tx) error {
		require.NoError(t, tx.Transfer(f.aliceA, f.bobA, f.alice, 400))
		require.NoError(t, tx.Emit(f.alice, []byte("x")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(1000), balance(t, f.ledger, f.aliceA))
	require.Equal(t, uint64(0), balance(t, f.ledger, f.bobA))
	require.Zero(t, f.ledger.LastSeq())
}

func TestTransferChecks(t *testing.T) {
	f := newFixture(t, 100)
	other := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()
	otherAcc := solana.NewWallet().PublicKey()

	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.auth, f.alice, f.bob, other}, func(tx *Tx) error {
		require.NoError(t, tx.CreateMint(otherMint, 9, f.auth, f.auth))
		require.NoError(t, tx.CreateTokenAccount(otherAcc, otherMint, f.bob))

		require.ErrorIs(t, tx.Transfer(f.aliceA, f.bobA, f.alice, 101), ErrInsufficientFunds)
		require.ErrorIs(t, tx.Transfer(f.aliceA, f.bobA, other, 1), ErrUnauthorized)
		require.ErrorIs(t, tx.Transfer(f.aliceA, otherAcc, f.alice, 1), ErrMintMismatch)
		require.ErrorIs(t, tx.MintTo(f.mint, f.bobA, other, 1), ErrUnauthorized)
		require.ErrorIs(t, tx.CreateTokenAccount(f.aliceA, f.mint, f.alice), ErrAccountExists)
		require.ErrorIs(t, tx.MintTo(f.mint, f.bobA, f.auth, ^uint64(0)), ErrOverflow)
		return nil
	})
	require.NoError(t, err)
}

func TestWritesRequireLock(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.bob}, func(tx *Tx) error {
		return tx.Transfer(f.aliceA, f.bobA, f.alice, 1)
	})
	require.ErrorIs(t, err, ErrNotLocked)

	err = f.ledger.View(context.Background(), []solana.PublicKey{f.alice}, func(tx *Tx) error {
		acc, err := tx.TokenAccount(f.aliceA)
		require.NoError(t, err)
		require.Equal(t, uint64(100), acc.Amount)
		return tx.Transfer(f.aliceA, f.bobA, f.alice, 1)
	})
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestBurnReducesSupply(t *testing.T) {
	f := newFixture(t, 100)
	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.alice, f.auth}, func(tx *Tx) error {
		return tx.Burn(f.mint, f.aliceA, f.alice, 40)
	})
	require.NoError(t, err)
	m, ok := f.ledger.Mint(f.mint)
	require.True(t, ok)
	require.Equal(t, uint64(60), m.Supply)
	require.Equal(t, uint64(60), balance(t, f.ledger, f.aliceA))
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	f := newFixture(t, 1000)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := f.ledger.Update(ctx, []solana.PublicKey{f.bob, f.alice}, func(tx *Tx) error {
				if err := tx.Transfer(f.aliceA, f.bobA, f.alice, 10); err != nil {
					return err
				}
				return tx.Emit(f.alice, nil)
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, uint64(500), balance(t, f.ledger, f.aliceA))
	require.Equal(t, uint64(500), balance(t, f.ledger, f.bobA))

	logs := f.ledger.Logs(0)
	require.Len(t, logs, 50)
	for i, entry := range logs {
		require.Equal(t, uint64(i+1), entry.Seq)
	}
}

func TestUpdateHonorsCancelledContext(t *testing.T) {
	f := newFixture(t, 100)

	blocked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = f.ledger.Update(context.Background(), []solana.PublicKey{f.alice}, func(tx *Tx) error {
			close(blocked)
			<-done
			return nil
		})
	}()
	<-blocked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.ledger.Update(ctx, []solana.PublicKey{f.alice}, func(tx *Tx) error {
		return tx.Transfer(f.aliceA, f.bobA, f.alice, 1)
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(done)

	require.Equal(t, uint64(100), balance(t, f.ledger, f.aliceA))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t, 250)
	_, err := f.ledger.Update(context.Background(), []solana.PublicKey{f.alice, f.bob}, func(tx *Tx) error {
		if err := tx.Transfer(f.aliceA, f.bobA, f.alice, 50); err != nil {
			return err
		}
		if err := tx.CreateDataAccount(f.alice, f.bob, []byte{1, 2, 3}); err != nil {
			return err
		}
		return tx.Emit(f.bob, []byte("log"))
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	require.NoError(t, f.ledger.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(200), balance(t, loaded, f.aliceA))
	require.Equal(t, uint64(50), balance(t, loaded, f.bobA))
	require.Equal(t, f.ledger.LastSeq(), loaded.LastSeq())

	acc, ok := loaded.AccountData(f.alice)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, acc.Data)
	require.Len(t, loaded.DataAccounts(f.bob), 1)

	empty, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Zero(t, empty.LastSeq())
}
