package engine

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/user/malscan-report/pkg/taxonomy"
)

// UnlabeledType is the type bucket for files with an empty label.
const UnlabeledType = "unknown"

// DefaultParallelThreshold is the input size above which counting is split
// across goroutines.
const DefaultParallelThreshold = 4096

// Aggregator rolls classified files up into per-session distributions.
type Aggregator struct {
	classifier *Classifier

	// ParallelThreshold of 0 uses DefaultParallelThreshold; negative disables.
	ParallelThreshold int
	// Workers of 0 uses GOMAXPROCS.
	Workers int
}

// NewAggregator creates an aggregator bound to a classifier.
func NewAggregator(c *Classifier) *Aggregator {
	return &Aggregator{classifier: c}
}

// TypeKey is the type-distribution key for a label.
func TypeKey(label string) string {
	k := taxonomy.Normalize(label)
	if k == "" {
		return UnlabeledType
	}
	return k
}

type tally struct {
	severity map[taxonomy.Severity]int
	types    map[string]int
}

func (a *Aggregator) count(files []FileResult) tally {
	t := tally{
		severity: make(map[taxonomy.Severity]int),
		types:    make(map[string]int),
	}
	for _, f := range files {
		t.severity[a.classifier.Classify(f.Label).Severity]++
		t.types[TypeKey(f.Label)]++
	}
	return t
}

// Aggregate counts files by severity tier and by threat type. Every declared
// tier is present in bySeverity; byType only holds observed labels.
func (a *Aggregator) Aggregate(files []FileResult) (bySeverity, byType Distribution) {
	table := a.classifier.Table()
	declared := make([]string, 0, len(table.Severities))
	for _, s := range table.Severities {
		declared = append(declared, string(s))
	}
	bySeverity = newDistribution(declared...)
	byType = newDistribution()

	for _, t := range a.tallies(files) {
		for sev, n := range t.severity {
			bySeverity.add(string(sev), n)
		}
		for typ, n := range t.types {
			byType.add(typ, n)
		}
	}

	// Tiers outside the declared list only appear with a hand-built table;
	// keep them after the declared ones in name order.
	if bySeverity.Len() > len(declared) {
		extra := append([]string(nil), bySeverity.keys[len(declared):]...)
		sort.Strings(extra)
		bySeverity.keys = append(bySeverity.keys[:len(declared)], extra...)
	}
	byType.sortKeys()
	return bySeverity, byType
}

func (a *Aggregator) tallies(files []FileResult) []tally {
	threshold := a.ParallelThreshold
	if threshold == 0 {
		threshold = DefaultParallelThreshold
	}
	if threshold < 0 || len(files) <= threshold {
		return []tally{a.count(files)}
	}

	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(files) + workers - 1) / workers
	parts := make([]tally, (len(files)+chunk-1)/chunk)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range parts {
		start := i * chunk
		end := min(start+chunk, len(files))
		g.Go(func() error {
			parts[i] = a.count(files[start:end])
			return nil
		})
	}
	_ = g.Wait()
	return parts
}
