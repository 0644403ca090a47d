package shared

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// HexBytes is encoded in JSON as a hex string.
type HexBytes []byte

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *HexBytes) UnmarshalJSON(data []byte) (err error) {
	var hexString string
	if err = json.Unmarshal(data, &hexString); err != nil {
		return
	}
	*b, err = hex.DecodeString(hexString)
	return
}

// HexInt is a big integer encoded in JSON as an unprefixed hex string.
type HexInt big.Int

func NewHexInt(v *big.Int) *HexInt {
	if v == nil {
		return nil
	}
	return (*HexInt)(new(big.Int).Set(v))
}

// Int returns the value as a *big.Int; nil stays nil.
func (h *HexInt) Int() *big.Int {
	if h == nil {
		return nil
	}
	return (*big.Int)(h)
}

func (h *HexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal((*big.Int)(h).Text(16))
}

func (h *HexInt) UnmarshalJSON(data []byte) error {
	var hexString string
	if err := json.Unmarshal(data, &hexString); err != nil {
		return err
	}
	if _, ok := (*big.Int)(h).SetString(hexString, 16); !ok {
		return fmt.Errorf("invalid hex integer: %q", hexString)
	}
	return nil
}
