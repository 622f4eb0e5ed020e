package revshare

import (
	"encoding/binary"
	"fmt"

	"github.com/bitfsorg/libreceipt-go/account"
)

const payoutSize = 69 // deployment_id(8) + bundle_id(8) + currency(1) + 4 pools(32) + curator(20)

// SerializePayout encodes a DeploymentPayout to binary format.
func SerializePayout(p *DeploymentPayout) []byte {
	buf := make([]byte, payoutSize)
	binary.BigEndian.PutUint64(buf[0:8], p.DeploymentID)
	binary.BigEndian.PutUint64(buf[8:16], p.BundleID)
	buf[16] = byte(p.Currency)
	binary.BigEndian.PutUint64(buf[17:25], p.ContributorPayout)
	binary.BigEndian.PutUint64(buf[25:33], p.TreasuryPayout)
	binary.BigEndian.PutUint64(buf[33:41], p.PoolPayout)
	binary.BigEndian.PutUint64(buf[41:49], p.CuratorPayout)
	copy(buf[49:69], p.Curator[:])
	return buf
}

// DeserializePayout decodes binary data into a DeploymentPayout.
func DeserializePayout(data []byte) (*DeploymentPayout, error) {
	if len(data) != payoutSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPayoutData, payoutSize, len(data))
	}
	p := &DeploymentPayout{
		DeploymentID:      binary.BigEndian.Uint64(data[0:8]),
		BundleID:          binary.BigEndian.Uint64(data[8:16]),
		Currency:          account.Currency(data[16]),
		ContributorPayout: binary.BigEndian.Uint64(data[17:25]),
		TreasuryPayout:    binary.BigEndian.Uint64(data[25:33]),
		PoolPayout:        binary.BigEndian.Uint64(data[33:41]),
		CuratorPayout:     binary.BigEndian.Uint64(data[41:49]),
	}
	copy(p.Curator[:], data[49:69])
	if !p.Currency.Valid() {
		return nil, fmt.Errorf("%w: currency %d", ErrInvalidPayoutData, data[16])
	}
	if _, err := p.Total(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayoutData, err)
	}
	return p, nil
}
