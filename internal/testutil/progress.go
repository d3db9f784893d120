package testutil

import "github.com/chatforge/attach/attachtypes"

// ProgressPoint is one Update callback as the mock tracker saw it.
type ProgressPoint struct {
	Transferred int64
	Total       int64
}

// MockProgressTracker records the full callback stream of a transfer: every
// progress point in order, plus the terminal outcome. Tests assert on the
// stream shape (coarse single-jump vs byte-level) and on which terminal
// callback fired.
type MockProgressTracker struct {
	// Points holds every Update call in order
	Points []ProgressPoint

	// Done is set when Complete fired
	Done bool

	// Failed holds the error passed to Error, nil when it never fired
	Failed error
}

// Update appends the progress point to the recorded stream.
func (m *MockProgressTracker) Update(transferred, total int64) {
	m.Points = append(m.Points, ProgressPoint{Transferred: transferred, Total: total})
}

// Complete marks the transfer as finished.
func (m *MockProgressTracker) Complete() {
	m.Done = true
}

// Error records the terminal failure.
func (m *MockProgressTracker) Error(err error) {
	m.Failed = err
}

// Last returns the most recent progress point. ok is false when no Update
// was ever recorded.
func (m *MockProgressTracker) Last() (point ProgressPoint, ok bool) {
	if len(m.Points) == 0 {
		return ProgressPoint{}, false
	}
	return m.Points[len(m.Points)-1], true
}

// Ensure MockProgressTracker implements the attachtypes.ProgressTracker interface
var _ attachtypes.ProgressTracker = (*MockProgressTracker)(nil)
