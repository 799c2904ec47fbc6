package domain

import "errors"

var (
	// ErrSessionNotFound is returned when the user has no open exam session.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrSessionActive is returned when opening a new exam while another one is running or paused.
	ErrSessionActive = errors.New("exam session already in progress")
	// ErrSessionFinished is returned by Finish on an already finished session.
	ErrSessionFinished = errors.New("exam session already finished")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current exam state")
	// ErrNoQuestions is returned when starting a session whose question set is empty.
	ErrNoQuestions = errors.New("no questions loaded")
	// ErrInsufficientQuestions is returned when a filtered bank has too few questions.
	ErrInsufficientQuestions = errors.New("not enough questions for this filter")
	// ErrPauseUnsupported is returned when pausing a variant that cannot pause.
	ErrPauseUnsupported = errors.New("this exam cannot be paused")
	// ErrUnknownVariant indicates an unsupported exam variant name.
	ErrUnknownVariant = errors.New("unknown exam variant")
	// ErrInvalidQuestion indicates a question that violates its invariants.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrNotFound is the generic missing-record error returned by stores.
	ErrNotFound = errors.New("record not found")
	// ErrNotEnrolled is returned when an authenticated user has no student profile.
	ErrNotEnrolled = errors.New("user is not enrolled as a student")
	// ErrNotAuthenticated is returned when a session-dependent operation has no identity.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is returned when sign-in fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSlotUnavailable is returned when booking a time that is not a free slot.
	ErrSlotUnavailable = errors.New("time slot not available")
	// ErrDateOutOfRange is returned when booking in the past or too far ahead.
	ErrDateOutOfRange = errors.New("date outside the booking window")
	// ErrVehicleRequired is returned when a practice lesson has no vehicle.
	ErrVehicleRequired = errors.New("practice lessons require a vehicle")
	// ErrPaymentNotPayable is returned when paying a payment that is not pending.
	ErrPaymentNotPayable = errors.New("payment is not pending")
)
