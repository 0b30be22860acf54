package store

import "errors"

// Sentinel errors for dispatch and commit.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNilRecipe     = errors.New("action returned no recipe")
	ErrCommitFailed  = errors.New("commit failed")
	ErrRecipePanic   = errors.New("recipe panicked")
)
