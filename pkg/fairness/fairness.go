// Package fairness implements the shuffle + commitment + reveal
// protocol: a server seed is drawn, the shuffle is derived
// deterministically from it, and a commitment hash is published before
// any tile is dealt. Grounded on the dual-commitment shape of
// other_examples/kero-chan-public-slot-game's provablyfair model
// (server-seed-hash published up front, plaintext seed revealed only
// at session end) adapted from a per-spin hash chain to a single
// per-game shuffle commitment, per spec.md §4.2/§6.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	mathrand "math/rand"

	"github.com/okeyrelay/core/pkg/tiles"
)

// Commitment is the sealed state of one room's shuffle, per spec.md §3.
type Commitment struct {
	ServerSeed   string `json:"serverSeed"`
	InitialState string `json:"initialState"`
	Nonce        int64  `json:"nonce"`
	ClientSeed   string `json:"clientSeed,omitempty"`
	Hash         string `json:"hash"`
	Revealed     bool   `json:"revealed"`
}

// GenerateServerSeed draws 128 bits from the process CSPRNG, hex
// encoded, per spec.md §3's "server seed (128-bit random)".
func GenerateServerSeed() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("fairness: generate server seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DeterministicRNG builds an HMAC-SHA256-counter RNG seeded by
// serverSeed||clientSeed||nonce, satisfying spec.md §4.2 step 3's
// reproducibility requirement: the same inputs always yield the same
// shuffle, so any observer holding the revealed seed can recompute it.
func DeterministicRNG(serverSeed, clientSeed string, nonce int64) *mathrand.Rand {
	material := fmt.Sprintf("%s:%s:%d", serverSeed, clientSeed, nonce)
	return mathrand.New(&hmacCounterSource{key: []byte(material)})
}

// hmacCounterSource implements math/rand.Source64 by hashing an
// incrementing counter under HMAC-SHA256(key=material), turning the
// digest into a uint64 stream — an ordinary counter-mode DRBG built on
// stdlib crypto primitives, matching how the corpus hand-rolls
// provably-fair RNGs without any ecosystem CSPRNG library.
type hmacCounterSource struct {
	key     []byte
	counter uint64
	buf     []byte
}

func (s *hmacCounterSource) next() uint64 {
	if len(s.buf) < 8 {
		mac := hmac.New(sha256.New, s.key)
		var counterBytes [8]byte
		for i := 0; i < 8; i++ {
			counterBytes[i] = byte(s.counter >> (56 - 8*i))
		}
		mac.Write(counterBytes[:])
		s.buf = mac.Sum(nil)
		s.counter++
	}
	v := uint64(0)
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(s.buf[i])
	}
	s.buf = s.buf[8:]
	return v
}

func (s *hmacCounterSource) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

func (s *hmacCounterSource) Uint64() uint64 {
	return s.next()
}

func (s *hmacCounterSource) Seed(int64) {
	// Re-seeding is not supported: the seed is the HMAC key fixed at
	// construction, derived from serverSeed/clientSeed/nonce.
}

// SerializeInitialState renders the post-shuffle tile order as the
// bit-exact compact JSON array the commitment hash covers (spec.md
// §6): field order id, Color, Value, IsFalseJoker, no whitespace.
// False jokers carry only id and IsFalseJoker (tiles.Tile.MarshalJSON).
func SerializeInitialState(shuffled []tiles.Tile) (string, error) {
	b, err := json.Marshal(shuffled)
	if err != nil {
		return "", fmt.Errorf("fairness: serialize initial state: %w", err)
	}
	return string(b), nil
}

// ComputeCommitmentHash computes
// HMAC-SHA256(key=serverSeed, msg=initialState+":"+nonce[+":"+clientSeed]),
// lowercase hex, bit-exact per spec.md §6.
func ComputeCommitmentHash(serverSeed, initialState string, nonce int64, clientSeed string) string {
	msg := fmt.Sprintf("%s:%d", initialState, nonce)
	if clientSeed != "" {
		msg = fmt.Sprintf("%s:%s", msg, clientSeed)
	}
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// Shuffle runs the full §4.2 Shuffling-phase protocol: draw a server
// seed, build the full set, shuffle and pick the indicator
// deterministically from (serverSeed, clientSeed, nonce), and compute
// the commitment. Returns the shuffled tiles, the indicator, and the
// sealed Commitment (ServerSeed/InitialState kept unexported from any
// outbound projection by the caller until Finished/Cancelled).
func Shuffle(clientSeed string, nonce int64) ([]tiles.Tile, tiles.Tile, Commitment, error) {
	serverSeed, err := GenerateServerSeed()
	if err != nil {
		return nil, tiles.Tile{}, Commitment{}, err
	}
	set := tiles.BuildFullSet()
	rng := DeterministicRNG(serverSeed, clientSeed, nonce)
	tiles.Shuffle(set, rng)
	indicator := tiles.ChooseIndicator(set, rng)

	initialState, err := SerializeInitialState(set)
	if err != nil {
		return nil, tiles.Tile{}, Commitment{}, err
	}
	hash := ComputeCommitmentHash(serverSeed, initialState, nonce, clientSeed)

	c := Commitment{
		ServerSeed:   serverSeed,
		InitialState: initialState,
		Nonce:        nonce,
		ClientSeed:   clientSeed,
		Hash:         hash,
	}
	return set, indicator, c, nil
}

// Verify recomputes the commitment hash from a revealed Commitment and
// reports whether it matches hash. Any single-field tamper (server
// seed, initial state, nonce, or client seed) fails verification, per
// spec.md §8's round-trip law.
func Verify(c Commitment, hash string) bool {
	return ComputeCommitmentHash(c.ServerSeed, c.InitialState, c.Nonce, c.ClientSeed) == hash
}

// randomNonce returns a crypto-random nonce in [0, 2^62). Nothing in
// this repository calls it: the room passes its own monotonically
// increasing counter to Shuffle.
func randomNonce() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
	return n.Int64()
}
