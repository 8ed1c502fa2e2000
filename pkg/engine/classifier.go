package engine

import (
	"github.com/user/malscan-report/pkg/taxonomy"
)

// Classification is the taxonomy verdict for one label.
type Classification struct {
	Severity       taxonomy.Severity
	Recommendation string
	Category       string
	Known          bool
}

// Classifier scores labels against an injected taxonomy table.
type Classifier struct {
	table *taxonomy.Table
}

// NewClassifier creates a classifier. A nil table selects the default one.
func NewClassifier(t *taxonomy.Table) *Classifier {
	if t == nil {
		t = taxonomy.Default()
	}
	return &Classifier{table: t}
}

// Table returns the policy in use.
func (c *Classifier) Table() *taxonomy.Table {
	return c.table
}

// Classify never fails: labels missing from the table, including the empty
// label, get the table fallback.
func (c *Classifier) Classify(label string) Classification {
	if r, ok := c.table.Lookup(label); ok {
		return Classification{
			Severity:       r.Severity,
			Recommendation: r.Recommendation,
			Category:       r.Category,
			Known:          true,
		}
	}
	fb := c.table.Fallback
	return Classification{
		Severity:       fb.Severity,
		Recommendation: fb.Recommendation,
		Category:       fb.Category,
	}
}

// ClassifyFile extends a FileResult with its classification.
func (c *Classifier) ClassifyFile(f FileResult) ClassifiedFileResult {
	cl := c.Classify(f.Label)
	return ClassifiedFileResult{
		FileResult:     f,
		Severity:       cl.Severity,
		Recommendation: cl.Recommendation,
		Category:       cl.Category,
		Known:          cl.Known,
	}
}
