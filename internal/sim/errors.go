package sim

import "errors"

// Conflict errors: rejected to the losing party only, the winner's
// state is untouched.
var (
	ErrSpawnClaimed = errors.New("spawn already claimed")
	ErrNoSpawn      = errors.New("spawn does not exist")
	ErrNotClaimant  = errors.New("spawn claimed by someone else")
	ErrOnCooldown   = errors.New("spell is on cooldown")
	ErrMaxStacks    = errors.New("spell already at max stacks")
	ErrUnknownSpell = errors.New("unknown spell")
)
