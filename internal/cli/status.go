package cli

import (
	"fmt"
	"time"

	"github.com/keystonehq/keystone/internal/checkin"
	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/patterns"
	"github.com/keystonehq/keystone/internal/userstate"
)

// StatusCmd prints the habit snapshot and the projected user state.
type StatusCmd struct{}

func (c *StatusCmd) Run(cctx *Context) error {
	data := cctx.Habit.Load()
	convoState := cctx.Convo.Load()
	state := userstate.Project(data, convoState.Open(), cctx.Today)

	fmt.Printf("State:  %s\n", data.State)
	fmt.Printf("Reps:   %d\n", data.RepsCount)
	if data.LastDoneDate != "" {
		fmt.Printf("Last:   %s\n", data.LastDoneDate)
	}
	if data.System != nil {
		fmt.Printf("System: when %q, do %q\n", data.System.Anchor, data.System.Action)
	}
	if data.State == models.StatePaused && data.PauseReason != "" {
		fmt.Printf("Paused: %s\n", data.PauseReason)
	}
	fmt.Printf("Next:   %s\n", describe(state))

	if data.NeedsRestoreConfirmation {
		fmt.Println()
		fmt.Println("Your saved data could not be read and an older backup is available.")
		fmt.Println("Run `keystone restore confirm` to use it or `keystone restore decline` to start fresh.")
	}
	return nil
}

func describe(state userstate.UserState) string {
	switch state {
	case userstate.NewUser:
		return "run `keystone design` to build your first habit system"
	case userstate.MidConversation:
		return "finish designing your habit system"
	case userstate.SystemDesigned:
		return "run `keystone activate` to start tracking"
	case userstate.NeedsReentry:
		return "it has been a while; restart small with your minimum dose"
	case userstate.MissedYesterday:
		return "yesterday was missed; check in or run the recovery action"
	case userstate.CompletedToday:
		return "done for today"
	case userstate.NeedsTuneup:
		return "first rep done; run `keystone tune` if the system needs adjusting"
	default:
		return "check in after your anchor"
	}
}

// PatternsCmd prints check-in pattern analysis once enough history exists.
type PatternsCmd struct{}

func (c *PatternsCmd) Run(cctx *Context) error {
	data := cctx.Habit.Load()
	p := patterns.Analyze(checkin.History(data), data.HabitTypeOrDefault())

	if !p.Unlocked {
		fmt.Printf("Patterns unlock after 7 days of check-ins. You have %d.\n", p.TotalCheckIns)
		return nil
	}

	fmt.Printf("Check-ins:     %d\n", p.TotalCheckIns)
	fmt.Printf("Completed run: %d\n", p.CompletedRun)
	fmt.Printf("Missed run:    %d\n", p.MissedRun)
	if p.AverageDifficulty > 0 {
		fmt.Printf("Difficulty:    %.1f (last two weeks)\n", p.AverageDifficulty)
	}

	fmt.Println("By weekday:")
	for day := time.Sunday; day <= time.Saturday; day++ {
		tally, ok := p.ByWeekday[day]
		if !ok {
			continue
		}
		fmt.Printf("  %-9s %d done, %d missed\n", day, tally.Completed, tally.Missed)
	}

	if len(p.TopMissReasons) > 0 {
		fmt.Println("Miss reasons:")
		for _, r := range p.TopMissReasons {
			fmt.Printf("  %s (%d)\n", r.Reason, r.Count)
		}
	}
	return nil
}
