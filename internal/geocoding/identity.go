package geocoding

import (
	"fmt"
	"math/rand/v2"
)

// Bounds of the random client number carried in the user agent.
const (
	minClientID = 10000
	maxClientID = 99999
)

// NewClientIdentity returns a user agent with a random client number in
// [10000, 99999]. It is meant to be called once per process run.
func NewClientIdentity() string {
	id := minClientID + rand.IntN(maxClientID-minClientID+1) //nolint:gosec // not a secret

	return fmt.Sprintf("Atlas-Coordinfo/1.0 (user_%d)", id)
}
