package southbound

import (
	"errors"
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// VendorError wraps a failed SDK call with the operation and port it was
// issued for. The underlying SDK status error remains reachable through
// Unwrap so callers can still match on vendor codes.
type VendorError struct {
	Op   string
	Port ports.PortID
	Err  error
}

func (e *VendorError) Error() string {
	if e.Port == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s for port %d: %v", e.Op, e.Port, e.Err)
}

func (e *VendorError) Unwrap() error { return e.Err }

// CheckSDK converts an SDK status into a VendorError, or nil on success.
func CheckSDK(err error, op string, port ports.PortID) error {
	if err == nil {
		return nil
	}
	return &VendorError{Op: op, Port: port, Err: err}
}

// UnsupportedError reports a desired configuration the platform or SDK
// cannot express. It is a configuration fault, not a transient one.
type UnsupportedError struct {
	What string
}

func (e *UnsupportedError) Error() string {
	return "unsupported configuration: " + e.What
}

func Unsupportedf(format string, args ...any) error {
	return &UnsupportedError{What: fmt.Sprintf(format, args...)}
}

func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// ConsistencyError reports an internal invariant violation, such as a
// delta asking to create a port that is already bound. State is no
// longer trustworthy when one of these surfaces; callers treat it as
// fatal rather than retrying.
type ConsistencyError struct {
	What string
}

func (e *ConsistencyError) Error() string {
	return "consistency violation: " + e.What
}

func Consistencyf(format string, args ...any) error {
	return &ConsistencyError{What: fmt.Sprintf(format, args...)}
}

func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// StatError reports a failed counter fetch during a stats cycle. These
// are transient: the cycle logs them, keeps the previous value and moves
// on. A StatError never aborts collection.
type StatError struct {
	Counter string
	Port    ports.PortID
	Err     error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("fetch %s for port %d: %v", e.Counter, e.Port, e.Err)
}

func (e *StatError) Unwrap() error { return e.Err }
