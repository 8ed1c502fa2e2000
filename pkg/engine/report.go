package engine

import (
	"fmt"

	"github.com/user/malscan-report/pkg/logging"
	"github.com/user/malscan-report/pkg/taxonomy"
)

// StageBuild names the report build stage in errors.
const StageBuild = "build report"

// Builder turns raw sessions into SessionReports.
type Builder struct {
	classifier *Classifier
	aggregator *Aggregator
}

// NewBuilder creates a builder for the given taxonomy. A nil table selects
// the default one.
func NewBuilder(t *taxonomy.Table) *Builder {
	c := NewClassifier(t)
	return &Builder{classifier: c, aggregator: NewAggregator(c)}
}

// Classifier returns the classifier used by the builder.
func (b *Builder) Classifier() *Classifier {
	return b.classifier
}

// Aggregator returns the aggregator used by the builder.
func (b *Builder) Aggregator() *Aggregator {
	return b.aggregator
}

// Validate checks the fields a report cannot be built without.
func Validate(s Session) error {
	switch {
	case s.ID == "":
		return &MalformedSessionError{SessionID: s.ID, Stage: StageBuild, Field: "session_id"}
	case s.ScannedAt.IsZero():
		return &MalformedSessionError{SessionID: s.ID, Stage: StageBuild, Field: "scanned_at"}
	case s.Files == nil:
		return &MalformedSessionError{SessionID: s.ID, Stage: StageBuild, Field: "files"}
	}
	return nil
}

// Build classifies every file in order and aggregates the same files. It
// fails only for malformed sessions; unknown labels degrade to the fallback.
func (b *Builder) Build(s Session) (*SessionReport, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	rows := make([]ClassifiedFileResult, len(s.Files))
	for i, f := range s.Files {
		rows[i] = b.classifier.ClassifyFile(f)
		if !rows[i].Known {
			logging.Warnf("unknown label %q for file %q in session %s, using %s", f.Label, f.Filename, s.ID, rows[i].Severity)
		}
	}

	bySeverity, byType := b.aggregator.Aggregate(s.Files)
	if bySeverity.Total() != len(s.Files) || byType.Total() != len(s.Files) {
		return nil, fmt.Errorf("%s: session %s: distribution totals %d/%d do not match %d files",
			StageBuild, s.ID, bySeverity.Total(), byType.Total(), len(s.Files))
	}

	logging.Debugf("built report for session %s: %d files, %d threats", s.ID, len(rows), countThreats(rows))
	return &SessionReport{
		Session:         s,
		Rows:            rows,
		BySeverity:      bySeverity,
		ByType:          byType,
		TaxonomyVersion: b.classifier.Table().Version,
	}, nil
}

func countThreats(rows []ClassifiedFileResult) int {
	r := SessionReport{Rows: rows}
	return r.ThreatCount()
}
