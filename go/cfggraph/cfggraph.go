// Package cfggraph adapts the control-flow graphs built by
// golang.org/x/tools/go/cfg to the fixpoint iterator's graph interface.
package cfggraph

import "golang.org/x/tools/go/cfg"

// A Graph wraps a function CFG. The entry is the CFG's first block;
// predecessor lists are derived from the successor lists once, at wrap
// time, so both directions agree by construction.
type Graph struct {
	cfg   *cfg.CFG
	preds map[*cfg.Block][]*cfg.Block
}

// New wraps c. The CFG must not be mutated afterwards.
func New(c *cfg.CFG) *Graph {
	preds := make(map[*cfg.Block][]*cfg.Block, len(c.Blocks))
	for _, b := range c.Blocks {
		for _, s := range b.Succs {
			preds[s] = append(preds[s], b)
		}
	}
	return &Graph{cfg: c, preds: preds}
}

// CFG returns the wrapped control-flow graph.
func (g *Graph) CFG() *cfg.CFG { return g.cfg }

func (g *Graph) Entry() *cfg.Block { return g.cfg.Blocks[0] }

func (g *Graph) Successors(b *cfg.Block) []*cfg.Block { return b.Succs }

func (g *Graph) Predecessors(b *cfg.Block) []*cfg.Block { return g.preds[b] }
