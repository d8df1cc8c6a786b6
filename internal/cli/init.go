package cli

import (
	"fmt"
)

// InitCmd creates the local store and prints where data lives.
type InitCmd struct{}

func (c *InitCmd) Run(cctx *Context) error {
	data := cctx.Habit.Load()
	fmt.Printf("Keystone initialized. Habit state: %s.\n", data.State)
	fmt.Printf("Your id for sync: %s\n", cctx.UserID)
	return nil
}
