package ledger

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

func makeAddr(seed byte) account.Address {
	var a account.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

func update(t *testing.T, s store.Store, fn func(tx store.Tx) error) error {
	t.Helper()
	return s.Update(fn)
}

func balance(t *testing.T, s store.Store, addr account.Address, cur account.Currency) uint64 {
	t.Helper()
	var out uint64
	require.NoError(t, s.View(func(tx store.Tx) error {
		var err error
		out, err = Balance(tx, addr, cur)
		return err
	}))
	return out
}

// --- Credit ---

func TestCredit_Accumulates(t *testing.T) {
	s := store.NewMemStore()
	alice := makeAddr(0xA1)

	for _, amt := range []uint64{100, 0, 250} {
		require.NoError(t, update(t, s, func(tx store.Tx) error {
			return Credit(tx, alice, account.Token, amt)
		}))
	}

	assert.Equal(t, uint64(350), balance(t, s, alice, account.Token))
	assert.Zero(t, balance(t, s, alice, account.Native), "currencies are separate")
}

func TestCredit_ZeroAddress(t *testing.T) {
	s := store.NewMemStore()
	err := update(t, s, func(tx store.Tx) error {
		return Credit(tx, account.ZeroAddress, account.Native, 1)
	})
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestCredit_Overflow(t *testing.T) {
	s := store.NewMemStore()
	a := makeAddr(0x01)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Credit(tx, a, account.Native, math.MaxUint64)
	}))
	err := update(t, s, func(tx store.Tx) error {
		return Credit(tx, a, account.Native, 1)
	})
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, uint64(math.MaxUint64), balance(t, s, a, account.Native))
}

// --- Withdraw ---

func TestWithdraw_ZeroesAndRecords(t *testing.T) {
	s := store.NewMemStore()
	bob := makeAddr(0xB0)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Credit(tx, bob, account.Native, 700)
	}))

	var got uint64
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		var err error
		got, err = Withdraw(tx, bob, account.Native)
		return err
	}))
	assert.Equal(t, uint64(700), got)
	assert.Zero(t, balance(t, s, bob, account.Native))

	require.NoError(t, s.View(func(tx store.Tx) error {
		claimed, err := AddressClaimed(tx, bob, account.Native)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), claimed)
		earned, err := AddressEarned(tx, bob, account.Native)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), earned)
		total, err := TotalClaimed(tx, account.Native)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), total)
		return nil
	}))
}

func TestWithdraw_Twice(t *testing.T) {
	s := store.NewMemStore()
	bob := makeAddr(0xB0)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Credit(tx, bob, account.Token, 5)
	}))
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		_, err := Withdraw(tx, bob, account.Token)
		return err
	}))
	err := update(t, s, func(tx store.Tx) error {
		_, err := Withdraw(tx, bob, account.Token)
		return err
	})
	assert.ErrorIs(t, err, ErrNothingToClaim)
}

// --- Restore ---

func TestRestore_UndoesWithdraw(t *testing.T) {
	s := store.NewMemStore()
	bob := makeAddr(0xB0)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Credit(tx, bob, account.Native, 700)
	}))
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		if _, err := Withdraw(tx, bob, account.Native); err != nil {
			return err
		}
		return Credit(tx, bob, account.Native, 50)
	}))
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Restore(tx, bob, account.Native, 700)
	}))

	assert.Equal(t, uint64(750), balance(t, s, bob, account.Native))
	require.NoError(t, s.View(func(tx store.Tx) error {
		claimed, err := AddressClaimed(tx, bob, account.Native)
		require.NoError(t, err)
		assert.Zero(t, claimed)
		total, err := TotalClaimed(tx, account.Native)
		require.NoError(t, err)
		assert.Zero(t, total)
		return Audit(tx, account.Native)
	}))
}

func TestRestore_ExceedsClaimed(t *testing.T) {
	s := store.NewMemStore()
	bob := makeAddr(0xB0)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		if err := Credit(tx, bob, account.Token, 10); err != nil {
			return err
		}
		_, err := Withdraw(tx, bob, account.Token)
		return err
	}))

	err := update(t, s, func(tx store.Tx) error {
		return Restore(tx, bob, account.Token, 11)
	})
	assert.ErrorIs(t, err, ErrRestoreExceedsClaimed)

	err = update(t, s, func(tx store.Tx) error {
		return Restore(tx, account.ZeroAddress, account.Token, 1)
	})
	assert.ErrorIs(t, err, ErrZeroAddress)
	assert.Zero(t, balance(t, s, bob, account.Token))
}

// --- Audit ---

func TestAudit_RandomOperations(t *testing.T) {
	s := store.NewMemStore()
	rng := rand.New(rand.NewSource(7))
	addrs := []account.Address{makeAddr(1), makeAddr(2), makeAddr(3), makeAddr(4)}

	for i := 0; i < 500; i++ {
		addr := addrs[rng.Intn(len(addrs))]
		cur := account.Currencies[rng.Intn(2)]
		if rng.Intn(3) == 0 {
			_ = update(t, s, func(tx store.Tx) error {
				_, err := Withdraw(tx, addr, cur)
				return err
			})
			continue
		}
		amt := uint64(rng.Intn(10_000))
		require.NoError(t, update(t, s, func(tx store.Tx) error {
			return Credit(tx, addr, cur, amt)
		}))
	}

	require.NoError(t, s.View(func(tx store.Tx) error {
		for _, cur := range account.Currencies {
			if err := Audit(tx, cur); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestAudit_DetectsTampering(t *testing.T) {
	s := store.NewMemStore()
	a := makeAddr(0x0A)
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return Credit(tx, a, account.Native, 10)
	}))
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		return writeAmount(tx, bucketBalances, entryKey(a, account.Native), 11)
	}))
	err := s.View(func(tx store.Tx) error { return Audit(tx, account.Native) })
	assert.ErrorIs(t, err, ErrConservationViolation)
}

func TestEntries_SkipZeroAndOtherCurrency(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, update(t, s, func(tx store.Tx) error {
		require.NoError(t, Credit(tx, makeAddr(2), account.Token, 20))
		require.NoError(t, Credit(tx, makeAddr(1), account.Token, 10))
		require.NoError(t, Credit(tx, makeAddr(3), account.Native, 30))
		require.NoError(t, Credit(tx, makeAddr(4), account.Token, 40))
		_, err := Withdraw(tx, makeAddr(4), account.Token)
		return err
	}))
	require.NoError(t, s.View(func(tx store.Tx) error {
		entries, err := Entries(tx, account.Token)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, makeAddr(1), entries[0].Address)
		assert.Equal(t, uint64(20), entries[1].Amount)
		return nil
	}))
}
