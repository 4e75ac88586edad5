package backup

import "sync"

// State owns the process-wide operation flag and the maintenance-mode gate.
// Check-then-set happens inside one critical section, so two concurrent
// backups can never both observe an idle state.
type State struct {
	mu          sync.Mutex
	current     Operation
	maintenance bool
}

func NewState() *State {
	return &State{}
}

// Acquire marks op as the running operation. It does not queue: if another
// operation is active the call fails immediately with
// OperationInProgressError carrying the in-flight kind.
func (s *State) Acquire(op Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != OpNone {
		return &OperationInProgressError{Current: s.current}
	}
	s.current = op
	return nil
}

// Release clears the running operation flag.
func (s *State) Release() {
	s.mu.Lock()
	s.current = OpNone
	s.mu.Unlock()
}

// Current reports which operation holds the gate, OpNone when idle.
func (s *State) Current() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// EnableMaintenance blocks all mutating data-access calls until disabled.
// Only the restore path enables it.
func (s *State) EnableMaintenance() {
	s.mu.Lock()
	s.maintenance = true
	s.mu.Unlock()
}

// DisableMaintenance lifts the mutation block.
func (s *State) DisableMaintenance() {
	s.mu.Lock()
	s.maintenance = false
	s.mu.Unlock()
}

// MaintenanceActive is checked by the data-access layer before every
// mutating call.
func (s *State) MaintenanceActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}
