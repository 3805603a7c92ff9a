package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// longPartLimit is the length beyond which a string component is digested
// instead of embedded verbatim.
const longPartLimit = 48

// Key builds a stable cache key from a prefix and heterogeneous components.
// Short scalars are embedded directly; long strings and structured values are
// reduced to a sha256 digest so equal inputs always map to equal keys.
func Key(prefix string, parts ...interface{}) string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, prefix)

	for _, p := range parts {
		switch v := p.(type) {
		case string:
			if len(v) > longPartLimit {
				out = append(out, digest([]byte(v)))
			} else {
				out = append(out, v)
			}
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case int:
			out = append(out, strconv.Itoa(v))
		case int64:
			out = append(out, strconv.FormatInt(v, 10))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				encoded = []byte(fmt.Sprint(v))
			}
			out = append(out, digest(encoded))
		}
	}

	joined := out[0]
	for _, p := range out[1:] {
		joined += "_" + p
	}
	return joined
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}
