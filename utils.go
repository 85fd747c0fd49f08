package dex

import (
	"crypto/sha256"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func jsonUnmarshal(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}

func sortStrings(keys []string) {
	sort.Strings(keys)
}

func lower(s string) string {
	return strings.ToLower(s)
}

// tokenAddress derives a deterministic 20-byte address from an arbitrary
// caller/owner identity string (e.g. GalaChain's "client|user123" form),
// so the TokenLedger collaborator's common.Address-keyed API can be driven
// by identities that aren't themselves Ethereum addresses.
func tokenAddress(identity string) common.Address {
	sum := sha256.Sum256([]byte(identity))
	return common.BytesToAddress(sum[:20])
}
