// Package ledger implements the pull-based claims ledger: a per-recipient,
// per-currency accumulator that is credited by distributions and zeroed by
// withdrawals.
//
// All functions operate on a store.Tx so that a distribution's credits, its
// log entry and its totals commit together.
package ledger

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

var (
	bucketBalances = []byte("ledger_balances")
	bucketEarned   = []byte("ledger_earned")
	bucketClaimed  = []byte("ledger_claimed")
	bucketTotals   = []byte("ledger_totals")
)

const keySize = 1 + account.AddressSize // currency(1) + address(20)

func entryKey(addr account.Address, cur account.Currency) []byte {
	k := make([]byte, keySize)
	k[0] = byte(cur)
	copy(k[1:], addr[:])
	return k
}

func totalKey(kind string, cur account.Currency) []byte {
	return append([]byte(kind+"/"), byte(cur))
}

func readAmount(tx store.Tx, bucket, key []byte) (uint64, error) {
	v := tx.Get(bucket, key)
	if v == nil {
		return 0, nil
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: %s has %d bytes", ErrCorruptValue, bucket, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func writeAmount(tx store.Tx, bucket, key []byte, amount uint64) error {
	if amount == 0 {
		return tx.Delete(bucket, key)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amount)
	return tx.Put(bucket, key, buf)
}

func addAmount(tx store.Tx, bucket, key []byte, delta uint64) error {
	cur, err := readAmount(tx, bucket, key)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(cur, delta, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrOverflow, bucket)
	}
	return writeAmount(tx, bucket, key, sum)
}

// Credit adds amount to addr's claimable balance and to the running totals.
// A zero amount is a no-op.
func Credit(tx store.Tx, addr account.Address, cur account.Currency, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if addr.IsZero() {
		return ErrZeroAddress
	}
	k := entryKey(addr, cur)
	if err := addAmount(tx, bucketBalances, k, amount); err != nil {
		return err
	}
	if err := addAmount(tx, bucketEarned, k, amount); err != nil {
		return err
	}
	return addAmount(tx, bucketTotals, totalKey("credited", cur), amount)
}

// Balance returns addr's claimable balance.
func Balance(tx store.Tx, addr account.Address, cur account.Currency) (uint64, error) {
	return readAmount(tx, bucketBalances, entryKey(addr, cur))
}

// Withdraw zeroes addr's balance and records it as claimed, returning the
// amount. The caller commits the withdrawal before paying out; a payout that
// is known to have failed is undone with Restore.
func Withdraw(tx store.Tx, addr account.Address, cur account.Currency) (uint64, error) {
	k := entryKey(addr, cur)
	amount, err := readAmount(tx, bucketBalances, k)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrNothingToClaim
	}
	if err := tx.Delete(bucketBalances, k); err != nil {
		return 0, err
	}
	if err := addAmount(tx, bucketClaimed, k, amount); err != nil {
		return 0, err
	}
	if err := addAmount(tx, bucketTotals, totalKey("claimed", cur), amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// Restore reverses a withdrawal of amount whose payout did not happen: the
// amount returns to addr's balance and leaves the claimed totals.
func Restore(tx store.Tx, addr account.Address, cur account.Currency, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if addr.IsZero() {
		return ErrZeroAddress
	}
	k := entryKey(addr, cur)
	if err := subAmount(tx, bucketClaimed, k, amount); err != nil {
		return err
	}
	if err := subAmount(tx, bucketTotals, totalKey("claimed", cur), amount); err != nil {
		return err
	}
	return addAmount(tx, bucketBalances, k, amount)
}

func subAmount(tx store.Tx, bucket, key []byte, delta uint64) error {
	cur, err := readAmount(tx, bucket, key)
	if err != nil {
		return err
	}
	diff, borrow := bits.Sub64(cur, delta, 0)
	if borrow != 0 {
		return fmt.Errorf("%w: %s holds %d, restoring %d", ErrRestoreExceedsClaimed, bucket, cur, delta)
	}
	return writeAmount(tx, bucket, key, diff)
}

// AddressEarned returns everything ever credited to addr.
func AddressEarned(tx store.Tx, addr account.Address, cur account.Currency) (uint64, error) {
	return readAmount(tx, bucketEarned, entryKey(addr, cur))
}

// AddressClaimed returns everything addr has withdrawn.
func AddressClaimed(tx store.Tx, addr account.Address, cur account.Currency) (uint64, error) {
	return readAmount(tx, bucketClaimed, entryKey(addr, cur))
}

// TotalCredited returns the sum of all credits in cur.
func TotalCredited(tx store.Tx, cur account.Currency) (uint64, error) {
	return readAmount(tx, bucketTotals, totalKey("credited", cur))
}

// TotalClaimed returns the sum of all withdrawals in cur.
func TotalClaimed(tx store.Tx, cur account.Currency) (uint64, error) {
	return readAmount(tx, bucketTotals, totalKey("claimed", cur))
}

// Entry is one non-zero claimable balance.
type Entry struct {
	Address  account.Address
	Currency account.Currency
	Amount   uint64
}

// Entries lists every non-zero balance in cur, ordered by address.
func Entries(tx store.Tx, cur account.Currency) ([]Entry, error) {
	var out []Entry
	err := tx.ForEach(bucketBalances, []byte{byte(cur)}, func(k, v []byte) error {
		if len(k) != keySize || len(v) != 8 {
			return fmt.Errorf("%w: balance entry", ErrCorruptValue)
		}
		var e Entry
		e.Currency = cur
		copy(e.Address[:], k[1:])
		e.Amount = binary.BigEndian.Uint64(v)
		if e.Amount == 0 {
			return nil
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Audit checks that the sum of current balances equals total credited minus
// total claimed for cur.
func Audit(tx store.Tx, cur account.Currency) error {
	credited, err := TotalCredited(tx, cur)
	if err != nil {
		return err
	}
	claimed, err := TotalClaimed(tx, cur)
	if err != nil {
		return err
	}
	entries, err := Entries(tx, cur)
	if err != nil {
		return err
	}
	var sum uint64
	for _, e := range entries {
		var carry uint64
		sum, carry = bits.Add64(sum, e.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: balance sum overflows", ErrConservationViolation)
		}
	}
	if claimed > credited || sum != credited-claimed {
		return fmt.Errorf("%w: %s balances=%d credited=%d claimed=%d",
			ErrConservationViolation, cur, sum, credited, claimed)
	}
	return nil
}
