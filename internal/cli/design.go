package cli

import (
	"fmt"
	"time"

	"github.com/keystonehq/keystone/internal/models"
)

// DesignCmd records the designed habit system and completes the intake
// conversation.
type DesignCmd struct {
	Anchor      string `help:"Existing routine or cue the habit attaches to." required:""`
	Action      string `help:"The tiny action to perform." required:""`
	Recovery    string `help:"Smaller fallback action for missed days."`
	Type        string `help:"Habit type." enum:"time_anchored,reactive" default:"time_anchored"`
	MinimumDose string `help:"The smallest version that still counts."`
	Environment string `help:"Environment change supporting the habit."`
	Identity    string `help:"Identity statement the habit reinforces."`
}

func (c *DesignCmd) Run(cctx *Context) error {
	system := models.HabitSystem{
		Anchor:         c.Anchor,
		Action:         c.Action,
		RecoveryAction: c.Recovery,
		Type:           models.HabitType(c.Type),
		MinimumDose:    c.MinimumDose,
		Environment:    c.Environment,
		Identity:       c.Identity,
	}

	data := cctx.Habit.DesignSystem(system)

	state := cctx.Convo.Load()
	state.Phase = models.PhaseComplete
	state.DraftSystem = nil
	state.UpdatedAt = time.Now()
	cctx.Convo.Save(state)

	fmt.Printf("System designed: when %q, do %q.\n", system.Anchor, system.Action)
	fmt.Printf("Habit is now %s. Run `keystone activate` when you are ready to start.\n", data.State)
	return nil
}

// TuneCmd adjusts individual fields of the designed system in place.
type TuneCmd struct {
	Anchor      string `help:"New anchor, if changing."`
	Action      string `help:"New action, if changing."`
	Recovery    string `help:"New recovery action, if changing."`
	MinimumDose string `help:"New minimum dose, if changing."`
}

func (c *TuneCmd) Run(cctx *Context) error {
	_, err := cctx.Habit.TuneSystem(func(s *models.HabitSystem) {
		if c.Anchor != "" {
			s.Anchor = c.Anchor
		}
		if c.Action != "" {
			s.Action = c.Action
		}
		if c.Recovery != "" {
			s.RecoveryAction = c.Recovery
		}
		if c.MinimumDose != "" {
			s.MinimumDose = c.MinimumDose
		}
	})
	if err != nil {
		return err
	}
	fmt.Println("System tuned.")
	return nil
}

// ActivateCmd moves a designed habit into daily tracking.
type ActivateCmd struct{}

func (c *ActivateCmd) Run(cctx *Context) error {
	data := cctx.Habit.ActivateHabit()
	if data.State != models.StateActive {
		return fmt.Errorf("habit is %s, only a designed habit can be activated", data.State)
	}
	fmt.Println("Habit activated. Check in after your anchor each day.")
	return nil
}

// GraduateCmd marks a habit as self-sustaining.
type GraduateCmd struct{}

func (c *GraduateCmd) Run(cctx *Context) error {
	data := cctx.Habit.GraduateHabit()
	if data.State != models.StateMaintained {
		return fmt.Errorf("habit is %s, only an active habit can graduate", data.State)
	}
	fmt.Println("Habit graduated. It runs on its own now.")
	return nil
}

// PauseCmd suspends tracking without losing history.
type PauseCmd struct {
	Reason string `arg:"" optional:"" help:"Why tracking is pausing."`
}

func (c *PauseCmd) Run(cctx *Context) error {
	data := cctx.Habit.PauseHabit(c.Reason)
	if data.State != models.StatePaused {
		return fmt.Errorf("habit is %s and cannot be paused", data.State)
	}
	fmt.Println("Habit paused. Resume whenever you are ready.")
	return nil
}

// ResumeCmd restarts tracking after a pause.
type ResumeCmd struct{}

func (c *ResumeCmd) Run(cctx *Context) error {
	data := cctx.Habit.ResumeHabit()
	if data.State != models.StateActive {
		return fmt.Errorf("habit is %s, only a paused habit can resume", data.State)
	}
	fmt.Println("Habit resumed.")
	return nil
}
