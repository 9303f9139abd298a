package redstone

import (
	"math/rand/v2"
	"strings"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// idGenerator hands out unique element and crumb ids. Ids are drawn from a
// seeded generator so a document always compiles to the same output.
type idGenerator struct {
	rng    *rand.Rand
	length int
	used   map[string]struct{}
}

func newIDGenerator(seed uint64, length int) *idGenerator {
	return &idGenerator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		length: length,
		used:   make(map[string]struct{}),
	}
}

// reserve marks an author-written id as taken.
func (g *idGenerator) reserve(id string) {
	g.used[id] = struct{}{}
}

// next returns a fresh id of the form "r" + random characters.
func (g *idGenerator) next() string {
	var sb strings.Builder
	for {
		sb.Reset()
		sb.WriteByte('r')
		for i := 0; i < g.length; i++ {
			sb.WriteByte(idAlphabet[g.rng.IntN(len(idAlphabet))])
		}
		id := sb.String()
		if _, taken := g.used[id]; !taken {
			g.used[id] = struct{}{}
			return id
		}
	}
}
