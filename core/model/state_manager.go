// Package model provides state management, estimator interfaces and weight
// persistence for the batched estimators.
package model

import (
	"sync"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// StateManager manages the fitted state of a batched model in a thread-safe manner.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	// Dimensions seen during fitting - Public for gob encoding
	NBatch    int
	NSamples  int
	NFeatures int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{
		Fitted: false,
	}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NBatch = 0
	s.NSamples = 0
	s.NFeatures = 0
}

// SetDimensions records the batch size, observations per element and
// features (excluding the intercept) seen during fitting.
func (s *StateManager) SetDimensions(nBatch, nSamples, nFeatures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NBatch = nBatch
	s.NSamples = nSamples
	s.NFeatures = nFeatures
}

// GetDimensions returns the dimensions recorded by SetDimensions.
func (s *StateManager) GetDimensions() (nBatch, nSamples, nFeatures int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NBatch, s.NSamples, s.NFeatures
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// ModelState represents the complete state of a model.
// This can be used for serialization and debugging.
type ModelState struct {
	Fitted    bool                   `json:"fitted"`
	NBatch    int                    `json:"n_batch,omitempty"`
	NSamples  int                    `json:"n_samples,omitempty"`
	NFeatures int                    `json:"n_features,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Fitted:    s.Fitted,
		NBatch:    s.NBatch,
		NSamples:  s.NSamples,
		NFeatures: s.NFeatures,
	}
}

// SetState sets the state from a ModelState struct.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Fitted = state.Fitted
	s.NBatch = state.NBatch
	s.NSamples = state.NSamples
	s.NFeatures = state.NFeatures
}

// WithState executes fn with the state locked for reading.
func (s *StateManager) WithState(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// WithStateMut executes fn with the state locked for writing.
func (s *StateManager) WithStateMut(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
