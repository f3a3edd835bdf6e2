package platform

import (
	"errors"
	"fmt"
)

// ErrEnvironTooLarge is returned by a Backend's Environ when the raw
// environment block exceeds that platform's budget (spec §5). Per spec §4.4
// this is fatal: the stub must never proceed with a truncated environment.
var ErrEnvironTooLarge = errors.New("platform: environment exceeds platform budget")

func errOverflow(ceiling int) error {
	return fmt.Errorf("%w: > %d bytes", ErrEnvironTooLarge, ceiling)
}
