package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrThemeNotFound indicates an unknown theme id.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrPlayerNotFound indicates the acting player has no game profile.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrGiftNotFound indicates an unknown gift id.
	ErrGiftNotFound = errors.New("gift not found")

	// ErrInvalidSelection is returned for malformed submissions, e.g. a
	// true/false question answered with more than one option.
	ErrInvalidSelection = errors.New("invalid option selection")
	// ErrAlreadyAnswered is returned when a question is resubmitted;
	// answers are recorded once and never double-counted.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrGiftExhausted is returned by storage when the atomic stock
	// decrement affects no rows. Resolved internally, never surfaced.
	ErrGiftExhausted = errors.New("gift stock exhausted")
	// ErrMilestoneAlreadyClaimed is returned when a milestone watermark
	// claim loses a race. Resolved internally, never surfaced.
	ErrMilestoneAlreadyClaimed = errors.New("milestone already claimed")

	// ErrEmailTaken is returned when registering with a known email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing or invalid token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a missing capability.
	ErrForbidden = errors.New("forbidden")
)
