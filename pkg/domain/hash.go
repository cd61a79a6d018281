package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TxHash is the 32-byte hash of the deposit transaction on the external chain.
type TxHash [32]byte

// ParseTxHash decodes a hex string, with or without a 0x prefix.
func ParseTxHash(s string) (TxHash, error) {
	var h TxHash
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("%w: tx hash: %v", ErrInvalidParameter, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("%w: tx hash must be %d bytes, got %d", ErrInvalidParameter, len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// IsZero reports whether the hash is unset.
func (h TxHash) IsZero() bool {
	return h == TxHash{}
}

func (h TxHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText encodes the hash as lowercase hex.
func (h TxHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex encoded hash.
func (h *TxHash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = TxHash{}
		return nil
	}
	parsed, err := ParseTxHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexBytes is a byte slice that marshals as hex text.
type HexBytes []byte

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalText encodes the bytes as lowercase hex.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

// UnmarshalText decodes hex text, with or without a 0x prefix.
func (b *HexBytes) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return fmt.Errorf("%w: hex bytes: %v", ErrInvalidParameter, err)
	}
	*b = raw
	return nil
}
