package pkg

import (
	"math/rand/v2"
	"strings"
)

// suffixAlphabet is safe in mongo database, rabbitmq queue and docker
// container names
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ResourceSuffix returns n random lowercase alphanumerics, used to keep names
// of test databases, queues and containers apart between runs
func ResourceSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))]) //nolint:gosec
	}
	return b.String()
}
