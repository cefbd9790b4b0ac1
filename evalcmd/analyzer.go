package evalcmd

import (
	"fmt"

	"github.com/benjaminjellison/ikos/config"
	"github.com/benjaminjellison/ikos/fixpoint"
	"github.com/benjaminjellison/ikos/interval"
	"github.com/sirupsen/logrus"
)

// analyzer runs a Program in the interval domain. The configured widening
// delay, thresholds and narrowing limit are applied through the iterator's
// strategy hooks.
type analyzer struct {
	prog       *Program
	conf       config.Config
	thresholds []interval.Z
	log        *logrus.Logger

	// report lines, in WTO order
	lines []string
}

var _ fixpoint.Value[interval.Interval] = interval.Interval{}
var _ fixpoint.Analyzer[string, interval.Interval] = (*analyzer)(nil)
var _ fixpoint.Extrapolator[string, interval.Interval] = (*analyzer)(nil)
var _ fixpoint.Refiner[string, interval.Interval] = (*analyzer)(nil)
var _ fixpoint.Processor[string, interval.Interval] = (*analyzer)(nil)

func newAnalyzer(prog *Program, conf config.Config, log *logrus.Logger) *analyzer {
	a := &analyzer{prog: prog, conf: conf, log: log}
	for _, t := range conf.WideningThresholds {
		a.thresholds = append(a.thresholds, interval.NewZ(t))
	}
	return a
}

func (a *analyzer) Bottom() interval.Interval { return interval.Empty() }

func (a *analyzer) AnalyzeNode(n string, in interval.Interval) interval.Interval {
	out := a.prog.op(n)(in)
	a.log.WithFields(logrus.Fields{
		"node": n,
		"pre":  in.String(),
		"post": out.String(),
	}).Debug("transfer")
	return out
}

func (a *analyzer) AnalyzeEdge(src, dst string, out interval.Interval) interval.Interval {
	if g, ok := a.prog.guard(src, dst); ok {
		return out.Meet(g)
	}
	return out
}

func (a *analyzer) Extrapolate(head string, iteration int, before, after interval.Interval) interval.Interval {
	if iteration <= a.conf.WideningDelay {
		return before.Join(after)
	}
	if len(a.thresholds) > 0 {
		return before.WidenJumpSet(after, a.thresholds)
	}
	return before.Widen(after)
}

func (a *analyzer) Refine(head string, iteration int, before, after interval.Interval) interval.Interval {
	if a.conf.NarrowingLimit > 0 && iteration > a.conf.NarrowingLimit {
		return before
	}
	return before.Narrow(after)
}

func (a *analyzer) ProcessPre(n string, v interval.Interval) {
	a.lines = append(a.lines, fmt.Sprintf("%s: pre %s", n, v))
}

func (a *analyzer) ProcessPost(n string, v interval.Interval) {
	a.lines = append(a.lines, fmt.Sprintf("%s: post %s", n, v))
}
