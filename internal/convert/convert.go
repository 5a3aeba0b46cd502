// Package convert defines the content-conversion pipeline contract: blob
// classification and the "convert to working tree" (smudge) step. Attribute
// stack evaluation and process/long-running filters are out of scope; this
// package only specifies the boundary the populator writes against and
// supplies the default passthrough behavior.
package convert

// Classification is the eligibility class of an index entry's conversion
// attributes, as produced by the (out-of-scope) attribute-stack evaluator.
type Classification int

const (
	// Incore means the full conversion can run entirely in memory.
	Incore Classification = iota
	// IncoreFilter means a single-file filter must run; never sent to a helper.
	IncoreFilter
	// IncoreProcess means a long-running filter process owns the conversion;
	// never sent to a helper.
	IncoreProcess
	// Streamable means the content could in principle be streamed to disk
	// without buffering the whole blob. Noted but not implemented: preload
	// always reads the full blob.
	Streamable
)

// Eligible reports whether entries with this classification may be
// distributed to helper processes for parallel population.
func (c Classification) Eligible() bool {
	switch c {
	case Incore, Streamable:
		return true
	default:
		return false
	}
}

// Attrs carries the per-entry conversion attributes the index stores
// alongside oid/mode/path.
type Attrs struct {
	AttrAction          int32
	CRLFAction          int32
	Ident               bool
	WorkingTreeEncoding string
}

// Classifier decides eligibility for a set of conversion attributes. The
// real attribute-stack evaluator is out of scope; callers supply whatever
// classifier fits their test or integration needs.
type Classifier interface {
	Classify(attrs Attrs) Classification
}

// Converter performs the "convert to working tree" step: if it returns a
// transformed buffer, the caller uses that; otherwise the caller uses the
// source bytes unchanged.
type Converter interface {
	// Smudge returns the working-tree bytes for src, or (nil, false, nil)
	// if no transformation applies and the source should be used as-is.
	Smudge(attrs Attrs, path string, src []byte) (out []byte, transformed bool, err error)
}

// PassthroughClassifier always reports Incore, matching a repository with no
// gitattributes-driven filters configured.
type PassthroughClassifier struct{}

func (PassthroughClassifier) Classify(Attrs) Classification { return Incore }

// IdentityConverter never transforms content; it stands in for the
// (out-of-scope) attribute-driven smudge pipeline when no filters apply.
type IdentityConverter struct{}

func (IdentityConverter) Smudge(Attrs, string, []byte) ([]byte, bool, error) {
	return nil, false, nil
}
