package prescription

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrUnsupportedType      = errors.New("unsupported prescription file type")
	ErrFileTooLarge         = errors.New("prescription file exceeds the size limit")
)
