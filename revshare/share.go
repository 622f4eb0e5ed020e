package revshare

import (
	"encoding/binary"
	"fmt"
)

const shareConfigSize = 15 // owner(2) + chain(2) + treasury(2) + bundle_id(8) + flags(1)

// SerializeShareConfig encodes a ShareConfig to binary format.
func SerializeShareConfig(cfg ShareConfig) []byte {
	buf := make([]byte, shareConfigSize)
	binary.BigEndian.PutUint16(buf[0:2], cfg.OwnerBps)
	binary.BigEndian.PutUint16(buf[2:4], cfg.ChainBps)
	binary.BigEndian.PutUint16(buf[4:6], cfg.TreasuryBps)
	binary.BigEndian.PutUint64(buf[6:14], cfg.BundleID)
	if cfg.IsSet {
		buf[14] = 0x01
	}
	return buf
}

// DeserializeShareConfig decodes binary data into a ShareConfig.
func DeserializeShareConfig(data []byte) (ShareConfig, error) {
	if len(data) != shareConfigSize {
		return ShareConfig{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidShareData, shareConfigSize, len(data))
	}
	cfg := ShareConfig{
		OwnerBps:    binary.BigEndian.Uint16(data[0:2]),
		ChainBps:    binary.BigEndian.Uint16(data[2:4]),
		TreasuryBps: binary.BigEndian.Uint16(data[4:6]),
		BundleID:    binary.BigEndian.Uint64(data[6:14]),
		IsSet:       data[14]&0x01 != 0,
	}
	if !cfg.Valid() {
		return ShareConfig{}, fmt.Errorf("%w: shares sum to %d", ErrInvalidShareData,
			uint32(cfg.OwnerBps)+uint32(cfg.ChainBps)+uint32(cfg.TreasuryBps))
	}
	return cfg, nil
}
