package permission

import "fmt"

// CodePermissionDenied is the error code carried by DeniedError.
const CodePermissionDenied = "PERMISSION_DENIED"

// DeniedError is returned by Check when the granted tier is below the required one.
type DeniedError struct {
	Required Tier
	Granted  Tier
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("This operation requires '%s' permission.", e.Required)
}

// Code returns CodePermissionDenied.
func (e *DeniedError) Code() string {
	return CodePermissionDenied
}

// Check allows the call iff granted >= required. An invalid tier on either
// side is always denied.
func Check(required, granted Tier) error {
	if granted.Allows(required) {
		return nil
	}
	return &DeniedError{Required: required, Granted: granted}
}
