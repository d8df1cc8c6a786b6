package cli

import (
	"fmt"

	"github.com/keystonehq/keystone/internal/checkin"
	"github.com/keystonehq/keystone/internal/habit"
	"github.com/keystonehq/keystone/internal/utils"
)

// CheckinCmd records today's check-in and prints the derived outcome.
type CheckinCmd struct {
	NoTrigger  bool   `help:"The habit's trigger did not occur today."`
	Done       bool   `help:"The habit action was taken."`
	Recovered  bool   `help:"The recovery action was completed after a miss."`
	Difficulty int    `help:"How hard the action felt, 1 (easy) to 5 (hard)." default:"0"`
	Reason     string `help:"Why the action was missed, if it was."`
	Date       string `help:"Calendar date to record against (YYYY-MM-DD). Defaults to today."`
}

func (c *CheckinCmd) Run(cctx *Context) error {
	fields := habit.LogFields{
		TriggerOccurred: !c.NoTrigger,
		ActionTaken:     c.Done,
		MissReason:      c.Reason,
	}
	if c.Recovered {
		v := true
		fields.RecoveryOffered = true
		fields.RecoveryCompleted = &v
	}
	if c.Difficulty != 0 {
		fields.DifficultyRating = &c.Difficulty
	}

	data, err := cctx.Habit.LogCheckIn(fields, c.Date)
	if err != nil {
		return err
	}

	date := c.Date
	if date == "" {
		date = utils.Today()
	}
	if entry, ok := checkin.DedupeByDate(data.CheckIns)[date]; ok {
		fmt.Printf("Checked in for %s: %s\n", date, checkin.DeriveState(entry))
	}
	fmt.Printf("Reps so far: %d\n", data.RepsCount)
	return nil
}

// SkipRecoveryCmd declines a pending recovery offer and unblocks the habit.
type SkipRecoveryCmd struct{}

func (c *SkipRecoveryCmd) Run(cctx *Context) error {
	data := cctx.Habit.SkipRecovery()
	fmt.Printf("Recovery skipped. Habit is %s again.\n", data.State)
	return nil
}
