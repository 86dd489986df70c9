package memory

import "fmt"

// ScopeNotSetError is returned by every Driver operation attempted before
// SetParent gave the driver a conversation owner.
type ScopeNotSetError struct {
	Op string
}

func (e *ScopeNotSetError) Error() string {
	return fmt.Sprintf("memory: %s: parent scope not set", e.Op)
}
