package evalcmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/benjaminjellison/ikos/cfg"
	"github.com/benjaminjellison/ikos/interval"
)

// A Program is a control-flow graph with an interval command per node and
// an optional guard per edge, loaded from a TOML description:
//
//	entry = "A"
//	init = [0, 0]
//
//	[[node]]
//	name = "C"
//	op = "add 1"
//
//	[[edge]]
//	from = "B"
//	to = "C"
//	max = 9
//
// Nodes mentioned only in edges behave as "id". A missing init analyzes
// from [-oo, +oo].
type Program struct {
	graph  *cfg.Graph[string]
	init   interval.Interval
	ops    map[string]nodeOp
	guards map[[2]string]interval.Interval
}

type nodeOp func(interval.Interval) interval.Interval

type rawProgram struct {
	Entry string    `toml:"entry"`
	Init  []int64   `toml:"init"`
	Nodes []rawNode `toml:"node"`
	Edges []rawEdge `toml:"edge"`
}

type rawNode struct {
	Name string `toml:"name"`
	Op   string `toml:"op"`
}

type rawEdge struct {
	From string `toml:"from"`
	To   string `toml:"to"`
	Min  *int64 `toml:"min"`
	Max  *int64 `toml:"max"`
}

// LoadProgram reads and validates a program description.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProgram(string(data))
}

// ParseProgram parses a TOML program description.
func ParseProgram(src string) (*Program, error) {
	var raw rawProgram
	if _, err := toml.Decode(src, &raw); err != nil {
		return nil, err
	}
	if raw.Entry == "" {
		return nil, fmt.Errorf("program has no entry node")
	}

	p := &Program{
		graph:  cfg.New(raw.Entry),
		init:   interval.Top(),
		ops:    map[string]nodeOp{},
		guards: map[[2]string]interval.Interval{},
	}
	switch len(raw.Init) {
	case 0:
	case 2:
		p.init = interval.New(interval.NewZ(raw.Init[0]), interval.NewZ(raw.Init[1]))
	default:
		return nil, fmt.Errorf("init must be a [min, max] pair, got %v", raw.Init)
	}

	for _, n := range raw.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("node with empty name")
		}
		if _, ok := p.ops[n.Name]; ok {
			return nil, fmt.Errorf("duplicate node %q", n.Name)
		}
		op, err := parseOp(n.Op)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		p.graph.AddNode(n.Name)
		p.ops[n.Name] = op
	}
	for _, e := range raw.Edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("edge %q -> %q has an empty endpoint", e.From, e.To)
		}
		p.graph.AddEdge(e.From, e.To)
		if e.Min != nil || e.Max != nil {
			lo, hi := interval.NegInf, interval.PosInf
			if e.Min != nil {
				lo = interval.NewZ(*e.Min)
			}
			if e.Max != nil {
				hi = interval.NewZ(*e.Max)
			}
			p.guards[[2]string{e.From, e.To}] = interval.New(lo, hi)
		}
	}
	return p, nil
}

func parseOp(s string) (nodeOp, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return func(v interval.Interval) interval.Interval { return v }, nil
	}
	switch fields[0] {
	case "id":
		if len(fields) != 1 {
			return nil, fmt.Errorf("op %q takes no arguments", fields[0])
		}
		return func(v interval.Interval) interval.Interval { return v }, nil
	case "add", "sub":
		if len(fields) != 2 {
			return nil, fmt.Errorf("op %q takes one argument", fields[0])
		}
		k, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", s, err)
		}
		arg := interval.Const(k)
		if fields[0] == "sub" {
			return func(v interval.Interval) interval.Interval { return v.Sub(arg) }, nil
		}
		return func(v interval.Interval) interval.Interval { return v.Add(arg) }, nil
	case "const":
		if len(fields) != 3 {
			return nil, fmt.Errorf("op %q takes two arguments", fields[0])
		}
		lo, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", s, err)
		}
		hi, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", s, err)
		}
		out := interval.New(interval.NewZ(lo), interval.NewZ(hi))
		return func(interval.Interval) interval.Interval { return out }, nil
	default:
		return nil, fmt.Errorf("unknown op %q", fields[0])
	}
}

// Graph returns the program's control-flow graph.
func (p *Program) Graph() *cfg.Graph[string] { return p.graph }

// Init returns the initial invariant at the entry node.
func (p *Program) Init() interval.Interval { return p.init }

func (p *Program) op(n string) nodeOp {
	if op, ok := p.ops[n]; ok {
		return op
	}
	return func(v interval.Interval) interval.Interval { return v }
}

func (p *Program) guard(from, to string) (interval.Interval, bool) {
	g, ok := p.guards[[2]string{from, to}]
	return g, ok
}
