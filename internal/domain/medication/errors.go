package medication

import "errors"

var (
	ErrMedicationNotFound = errors.New("medication not found")
	ErrInvalidFrequency   = errors.New("unrecognized dose frequency")
	ErrInvalidDoseTime    = errors.New("dose time must be a valid HH:MM wall-clock time")
	ErrInvalidStatus      = errors.New("invalid medication status")
	ErrNotActive          = errors.New("medication is not active")
)
