// Package settings holds process-wide runtime toggles. The admin panel flips
// them at runtime; they are initialized from config at startup and are not
// persisted across restarts. The object is passed by handle, never reached
// through a package-level global.
package settings

import "sync"

type State struct {
	DeliveryEnabled bool `json:"delivery_enabled"`
	PickupEnabled   bool `json:"pickup_enabled"`
}

type Settings struct {
	mu    sync.RWMutex
	state State
}

func New(deliveryEnabled, pickupEnabled bool) *Settings {
	return &Settings{state: State{
		DeliveryEnabled: deliveryEnabled,
		PickupEnabled:   pickupEnabled,
	}}
}

func (s *Settings) DeliveryEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DeliveryEnabled
}

func (s *Settings) SetDeliveryEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DeliveryEnabled = enabled
}

func (s *Settings) PickupEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PickupEnabled
}

func (s *Settings) SetPickupEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PickupEnabled = enabled
}

func (s *Settings) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
