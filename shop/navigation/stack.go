// Package navigation keeps the per-session history of visited screens that
// backs the Back and Home buttons.
package navigation

import "sync"

// Kind identifies a replayable screen. Only screens that make sense as a
// Back target are recorded; transient notices and form prompts are not.
type Kind string

const (
	KindCategories Kind = "categories"
	KindProducts   Kind = "products"
	KindProduct    Kind = "product"
	KindCart       Kind = "cart"
	KindCheckout   Kind = "checkout"
	KindHistory    Kind = "history"
)

// Frame is one history entry: a screen kind plus the payload needed to
// redraw it.
type Frame struct {
	Kind      Kind
	Category  string
	ProductID int64
}

// Stack holds one history per session id. The zero value is not usable;
// construct with NewStack.
type Stack struct {
	mu     sync.Mutex
	frames map[int64][]Frame
}

// NewStack returns an empty navigation store.
func NewStack() *Stack {
	return &Stack{frames: make(map[int64][]Frame)}
}

// Push records a newly rendered screen as the top of the session's history.
// Pushing a frame equal to the current top is a no-op, which makes replaying
// a frame after Back converge on a single history entry instead of stacking
// duplicates.
func (s *Stack) Push(sessionID int64, f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack := s.frames[sessionID]
	if len(stack) > 0 && stack[len(stack)-1] == f {
		return
	}
	s.frames[sessionID] = append(stack, f)
}

// Pop removes the top frame and returns the new top to replay. When the
// stack holds at most one frame there is no predecessor: the history is
// cleared and ok is false, meaning the caller should fall through to Home.
func (s *Stack) Pop(sessionID int64) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack := s.frames[sessionID]
	if len(stack) < 2 {
		delete(s.frames, sessionID)
		return Frame{}, false
	}
	stack = stack[:len(stack)-1]
	s.frames[sessionID] = stack
	return stack[len(stack)-1], true
}

// Clear empties the session's history (Home navigation, order confirmation).
func (s *Stack) Clear(sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.frames, sessionID)
}

// Current returns the frame of the currently displayed screen, if any.
func (s *Stack) Current(sessionID int64) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack := s.frames[sessionID]
	if len(stack) == 0 {
		return Frame{}, false
	}
	return stack[len(stack)-1], true
}

// Depth reports the number of recorded frames; used by tests and diagnostics.
func (s *Stack) Depth(sessionID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames[sessionID])
}
