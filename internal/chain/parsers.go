package chain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// Stack item parsers. Neo N3 nodes encode ByteString/Buffer values as base64.

// ParseByteArray decodes a ByteString or Buffer stack item.
func ParseByteArray(item StackItem) ([]byte, error) {
	switch item.Type {
	case "ByteString", "Buffer":
		var value string
		if err := json.Unmarshal(item.Value, &value); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(value)
	case "Null", "Any":
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected type: %s", item.Type)
}

// ParseInteger decodes an Integer stack item.
func ParseInteger(item StackItem) (*big.Int, error) {
	if item.Type != "Integer" {
		return nil, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", value)
	}
	return n, nil
}

// ParseBoolean decodes a Boolean stack item.
func ParseBoolean(item StackItem) (bool, error) {
	if item.Type != "Boolean" {
		return false, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value bool
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return false, err
	}
	return value, nil
}

// ParseAddressBytes decodes a ByteString stack item holding a script hash and
// returns it as a hex address string in big-endian display form.
func ParseAddressBytes(item StackItem) (string, error) {
	raw, err := ParseByteArray(item)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}
	reversed := make([]byte, len(raw))
	for i, b := range raw {
		reversed[len(raw)-1-i] = b
	}
	return "0x" + fmt.Sprintf("%x", reversed), nil
}
