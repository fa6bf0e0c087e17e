package hashfunction

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-faster/city"
	"github.com/google/uuid"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/spaolacci/murmur3"
)

type HashFunctionType int

/* Pre-defined hash functions */
const (
	HashFunctionIdent  = HashFunctionType(0)
	HashFunctionMurmur = HashFunctionType(1)
	HashFunctionCity   = HashFunctionType(2)
)

var (
	errUnknownValueType = func(v shvalue.Value, hf HashFunctionType) error {
		return fmt.Errorf("unsupported value kind '%s' for hash function '%s'", v.Kind(), ToString(hf))
	}
)

// EncodeUInt64 encodes input as a varint padded to 8 bytes, or to 10 bytes
// for values that do not fit into 56 bits.
func EncodeUInt64(input uint64) []byte {
	const ENCODING_BYTES_BIG = binary.MaxVarintLen64
	const ENCODING_BYTES = 8
	const BOUND = 1 << 56 /* 72057594037927936 */

	sz := ENCODING_BYTES
	if input >= BOUND {
		sz = ENCODING_BYTES_BIG
	}

	buf := make([]byte, sz)
	binary.PutUvarint(buf, input)
	return buf
}

// hashInput returns the byte form of v that murmur and city hash over.
// Integers are varint-encoded, strings and bytes hash as-is.
func hashInput(v shvalue.Value, hf HashFunctionType) ([]byte, error) {
	switch v.Kind() {
	case shvalue.KindInt:
		n, _ := v.Int64()
		return EncodeUInt64(uint64(n)), nil
	case shvalue.KindUint:
		return EncodeUInt64(v.Any().(uint64)), nil
	case shvalue.KindString, shvalue.KindBytes:
		return []byte(v.Str()), nil
	case shvalue.KindFloat:
		if n, ok := v.Int64(); ok {
			return EncodeUInt64(uint64(n)), nil
		}
	}
	return nil, errUnknownValueType(v, hf)
}

func ApplyMurmurHashFunction(v shvalue.Value) (uint32, error) {
	buf, err := hashInput(v, HashFunctionMurmur)
	if err != nil {
		return 0, err
	}
	return murmur3.Sum32(buf), nil
}

func ApplyCityHashFunction(v shvalue.Value) (uint32, error) {
	buf, err := hashInput(v, HashFunctionCity)
	if err != nil {
		return 0, err
	}
	return city.Hash32(buf), nil
}

// applyIdentity maps v onto uint64 without hashing. Strings must be UUIDs;
// their low 64 bits are used.
func applyIdentity(v shvalue.Value) (uint64, error) {
	switch v.Kind() {
	case shvalue.KindInt, shvalue.KindFloat:
		n, ok := v.Int64()
		if !ok {
			return 0, errUnknownValueType(v, HashFunctionIdent)
		}
		return uint64(n), nil
	case shvalue.KindUint:
		return v.Any().(uint64), nil
	case shvalue.KindString:
		u, err := uuid.Parse(strings.ToLower(v.Str()))
		if err != nil {
			return 0, err
		}
		return binary.BigEndian.Uint64(u[8:]), nil
	default:
		return 0, errUnknownValueType(v, HashFunctionIdent)
	}
}

// ApplyHashFunction hashes v with hf and returns the result as uint64.
func ApplyHashFunction(v shvalue.Value, hf HashFunctionType) (uint64, error) {
	switch hf {
	case HashFunctionIdent:
		return applyIdentity(v)
	case HashFunctionMurmur:
		h, err := ApplyMurmurHashFunction(v)
		return uint64(h), err
	case HashFunctionCity:
		h, err := ApplyCityHashFunction(v)
		return uint64(h), err
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}

// HashFunctionByName returns the corresponding HashFunctionType based on the given hash function name.
// It accepts a string parameter `hfn` representing the hash function name.
// It returns the corresponding HashFunctionType and an error if the hash function name is not recognized.
//
// Parameters:
//   - hfn: The name of the hash function.
//
// Returns:
//   - HashFunctionType: The corresponding HashFunctionType.
//   - error: An error if the hash function name is not recognized.
func HashFunctionByName(hfn string) (HashFunctionType, error) {
	switch hfn {
	case "identity", "ident", "":
		return HashFunctionIdent, nil
	case "murmur":
		return HashFunctionMurmur, nil
	case "city":
		return HashFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", hfn)
	}
}

// ToString converts a HashFunctionType to its name, or "" for unknown types.
func ToString(hf HashFunctionType) string {
	switch hf {
	case HashFunctionIdent:
		return "identity"
	case HashFunctionMurmur:
		return "murmur"
	case HashFunctionCity:
		return "city"
	}
	return ""
}
