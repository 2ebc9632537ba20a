package schedule

import "errors"

var (
	// ErrInvalidQuality is returned when a quality score is outside [0,5].
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrInvalidPercentage is returned when a completion percentage is outside [0,100].
	ErrInvalidPercentage = errors.New("invalid percentage")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidStudyTime is returned for a negative study time increment.
	ErrInvalidStudyTime = errors.New("invalid study time")

	ErrEasinessOutOfRange = errors.New("easiness factor out of range")
	ErrIntervalOutOfRange = errors.New("interval out of range")
	ErrCorruptRecord      = errors.New("corrupt record")
)

// IsValidationError reports whether err was caused by invalid caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuality) ||
		errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidStudyTime)
}
