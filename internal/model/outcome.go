package model

import (
	"encoding/json"
	"fmt"
)

// OutcomeKind tags which variant an Outcome holds.
type OutcomeKind int

const (
	// outcomeUnset is the kind of the zero Outcome. It is never scored.
	outcomeUnset OutcomeKind = iota

	// OutcomeScored means both captures were compared and a similarity score exists.
	OutcomeScored

	// OutcomeSizeMismatch means the two images had different dimensions at diff time.
	OutcomeSizeMismatch

	// OutcomeCaptureError means a step failed for a reason other than the ones below.
	OutcomeCaptureError

	// OutcomeMissingFile means a screenshot file was absent when it was needed.
	OutcomeMissingFile

	// OutcomeDecodeFailure means a screenshot file existed but could not be decoded.
	OutcomeDecodeFailure

	// OutcomeNotRun means the page was never compared because the run timed out.
	OutcomeNotRun
)

var outcomeKindNames = map[OutcomeKind]string{
	OutcomeScored:        "scored",
	OutcomeSizeMismatch:  "size_mismatch",
	OutcomeCaptureError:  "capture_error",
	OutcomeMissingFile:   "missing_file",
	OutcomeDecodeFailure: "decode_failure",
	OutcomeNotRun:        "not_run",
}

// String returns the stable identifier of the kind, used in JSON and in the database.
func (k OutcomeKind) String() string {
	if name, ok := outcomeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseOutcomeKind is the inverse of OutcomeKind.String.
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	for kind, name := range outcomeKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome kind %q", s)
}

// Outcome is the result of comparing one page. It holds either a similarity
// score (OutcomeScored) or a failure kind with a human-readable detail, never both.
// The zero value carries no score and reads as an error; use the constructors.
type Outcome struct {
	kind   OutcomeKind
	score  float64
	detail string
}

// Scored returns an outcome holding a similarity score in [0, 100].
func Scored(score float64) Outcome {
	return Outcome{kind: OutcomeScored, score: score}
}

// SizeMismatch returns an outcome for images whose dimensions differ.
func SizeMismatch(detail string) Outcome {
	return Outcome{kind: OutcomeSizeMismatch, detail: detail}
}

// CaptureError returns an outcome for an unclassified step failure.
func CaptureError(detail string) Outcome {
	return Outcome{kind: OutcomeCaptureError, detail: detail}
}

// MissingFile returns an outcome for an absent screenshot.
func MissingFile(detail string) Outcome {
	return Outcome{kind: OutcomeMissingFile, detail: detail}
}

// DecodeFailure returns an outcome for an unreadable screenshot.
func DecodeFailure(detail string) Outcome {
	return Outcome{kind: OutcomeDecodeFailure, detail: detail}
}

// NotRun returns an outcome for a page skipped because the run deadline passed.
func NotRun(detail string) Outcome {
	return Outcome{kind: OutcomeNotRun, detail: detail}
}

// RestoreOutcome rebuilds an outcome from its stored parts.
// score must be non-nil exactly when kind is OutcomeScored.
func RestoreOutcome(kind OutcomeKind, score *float64, detail string) (Outcome, error) {
	if _, ok := outcomeKindNames[kind]; !ok {
		return Outcome{}, fmt.Errorf("unknown outcome kind %d", kind)
	}
	if kind == OutcomeScored {
		if score == nil {
			return Outcome{}, fmt.Errorf("scored outcome without a score")
		}
		return Scored(*score), nil
	}
	if score != nil {
		return Outcome{}, fmt.Errorf("%s outcome must not carry a score", kind)
	}
	return Outcome{kind: kind, detail: detail}, nil
}

// Kind returns the variant tag.
func (o Outcome) Kind() OutcomeKind {
	return o.kind
}

// Score returns the similarity score and true for a scored outcome,
// and 0 and false for every other kind.
func (o Outcome) Score() (float64, bool) {
	if o.kind != OutcomeScored {
		return 0, false
	}
	return o.score, true
}

// Detail returns the failure detail. It is empty for scored outcomes.
func (o Outcome) Detail() string {
	return o.detail
}

// Label returns the text shown in the score column of a report:
// "97.52%", "Size mismatch" or "Error".
func (o Outcome) Label() string {
	switch o.kind {
	case OutcomeScored:
		return fmt.Sprintf("%.2f%%", o.score)
	case OutcomeSizeMismatch:
		return "Size mismatch"
	default:
		return "Error"
	}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o.detail == "" {
		return o.Label()
	}
	return o.Label() + " (" + o.detail + ")"
}

type outcomeJSON struct {
	Kind   string   `json:"kind"`
	Score  *float64 `json:"score"`
	Detail string   `json:"detail,omitempty"`
}

// MarshalJSON encodes the outcome as {"kind": ..., "score": n|null, "detail": ...}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	v := outcomeJSON{Kind: o.kind.String(), Detail: o.detail}
	if score, ok := o.Score(); ok {
		v.Score = &score
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var v outcomeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	kind, err := ParseOutcomeKind(v.Kind)
	if err != nil {
		return err
	}
	restored, err := RestoreOutcome(kind, v.Score, v.Detail)
	if err != nil {
		return err
	}
	*o = restored
	return nil
}
