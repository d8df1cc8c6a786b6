package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/keystonehq/keystone/internal/habit"
)

// ExportCmd writes the exact persisted habit payload to stdout or a file.
type ExportCmd struct {
	Out string `help:"File to write instead of stdout." type:"path"`
}

func (c *ExportCmd) Run(cctx *Context) error {
	payload, err := cctx.Habit.ExportHabitData()
	if err != nil {
		return err
	}
	if c.Out == "" {
		fmt.Println(payload)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(payload), 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("Exported habit data to %s\n", c.Out)
	return nil
}

// ImportCmd replaces local habit data with a previously exported payload.
type ImportCmd struct {
	File string `arg:"" help:"Export file to import." type:"existingfile"`
}

func (c *ImportCmd) Run(cctx *Context) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	data, err := cctx.Habit.ImportHabitData(string(raw))
	if err != nil {
		return err
	}
	fmt.Printf("Imported habit data: %s, %d reps.\n", data.State, data.RepsCount)
	return nil
}

// ResetCmd deletes all habit and conversation data, local and remote.
type ResetCmd struct {
	Force bool `help:"Skip the confirmation prompt."`
}

func (c *ResetCmd) Run(cctx *Context) error {
	if !c.Force {
		fmt.Print("This deletes all habit data, including any synced copy. Type 'reset' to confirm: ")
		var answer string
		fmt.Scanln(&answer)
		if strings.TrimSpace(answer) != "reset" {
			fmt.Println("Aborted.")
			return nil
		}
	}
	cctx.Habit.ResetHabitData()
	cctx.Convo.Reset()
	fmt.Println("All data cleared.")
	return nil
}

// RestoreCmd resolves a pending restore offer after primary-slot corruption.
type RestoreCmd struct {
	Answer string `arg:"" enum:"confirm,decline" help:"confirm uses the backup, decline keeps current data and discards it."`
}

func (c *RestoreCmd) Run(cctx *Context) error {
	switch c.Answer {
	case "confirm":
		data, err := cctx.Habit.RestoreFromBackup()
		if errors.Is(err, habit.ErrNoBackup) {
			fmt.Println("No backup is available.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Backup restored: %s, %d reps.\n", data.State, data.RepsCount)
	case "decline":
		if err := cctx.Habit.ClearBackup(); err != nil {
			return err
		}
		fmt.Println("Backup discarded.")
	}
	return nil
}
