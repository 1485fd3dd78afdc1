// Package scoring turns snapshots and market assessments into verdicts.
//
// Every evaluator follows one shape: compute named factors, clamp them to
// [0,1], reduce them by an ordered weight set and classify the composite
// through a threshold table. Scorer captures that shape once; the evaluator
// files only hold their factor math and rule sets.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"Veritas/internal/domain/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDivision     = errors.New("division by zero")
)

// InputError names the offending field. It matches ErrInvalidInput with errors.Is.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

type Weight struct {
	Name  string
	Value float64
}

type Band struct {
	Above float64
	Tier  models.Tier
}

// ThresholdTable maps a composite score to a tier. A score strictly above a
// band's bound gets that band's tier; Floor catches everything else.
type ThresholdTable struct {
	Bands []Band
	Floor models.Tier
}

func (t ThresholdTable) Classify(score float64) models.Tier {
	for _, b := range t.Bands {
		if score > b.Above {
			return b.Tier
		}
	}
	return t.Floor
}

// Result is the outcome of one Scorer run.
type Result struct {
	Composite float64
	Tier      models.Tier
	Factors   map[string]float64
}

// Scorer is a weighted composite scorer over inputs of type S.
type Scorer[S any] struct {
	factors func(S) map[string]float64
	weights []Weight
	table   ThresholdTable
}

// NewScorer copies weights and bands; bands are sorted from highest bound down.
func NewScorer[S any](factors func(S) map[string]float64, weights []Weight, table ThresholdTable) *Scorer[S] {
	ws := append([]Weight(nil), weights...)
	bands := append([]Band(nil), table.Bands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Above > bands[j].Above })
	return &Scorer[S]{
		factors: factors,
		weights: ws,
		table:   ThresholdTable{Bands: bands, Floor: table.Floor},
	}
}

func (s *Scorer[S]) Weights() []Weight {
	return append([]Weight(nil), s.weights...)
}

func (s *Scorer[S]) Table() ThresholdTable {
	return s.table
}

// Score sums clamped factors in weight order, so identical inputs give bit-identical composites.
func (s *Scorer[S]) Score(in S) Result {
	f := s.factors(in)
	var sum float64
	for _, w := range s.weights {
		v := clamp01(f[w.Name])
		f[w.Name] = v
		sum += w.Value * v
	}
	composite := clamp01(sum)
	return Result{Composite: composite, Tier: s.table.Classify(composite), Factors: f}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ratio returns num/den, or 0 when den is not positive. A quotient that
// overflows is rejected as an InputError on the denominator field.
func ratio(name, denField string, num, den float64) (float64, error) {
	if den <= 0 {
		return 0, nil
	}
	r := num / den
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, &InputError{Field: denField, Reason: fmt.Sprintf("%s overflows with %s=%v", name, denField, den)}
	}
	return r, nil
}

func requireNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InputError{Field: field, Reason: "must be a finite number"}
	}
	if v < 0 {
		return &InputError{Field: field, Reason: fmt.Sprintf("must be >= 0, got %v", v)}
	}
	return nil
}

func requireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InputError{Field: field, Reason: "must be a finite number"}
	}
	return nil
}

func validateMarket(m models.MarketAssessment) error {
	if err := m.Validate(); err != nil {
		return &InputError{Field: "market", Reason: err.Error()}
	}
	return nil
}

// Option customises an evaluator.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock used for verdict timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
