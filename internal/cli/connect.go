package cli

import (
	"errors"
	"fmt"

	"github.com/keystonehq/keystone/internal/keyring"
	"github.com/keystonehq/keystone/internal/sync"
)

// ConnectCmd manages the remote sync connection string. The string is
// stored in the OS keyring, never in config files or the local store.
type ConnectCmd struct {
	Set    ConnectSetCmd    `cmd:"" help:"Store a Postgres connection string for sync."`
	Clear  ConnectClearCmd  `cmd:"" help:"Remove the stored connection string."`
	Status ConnectStatusCmd `cmd:"" help:"Show whether sync is configured."`
}

type ConnectSetCmd struct {
	DSN string `arg:"" help:"Postgres connection string. Must not embed a password; use ~/.pgpass or IAM auth."`
}

func (c *ConnectSetCmd) Run(cctx *Context) error {
	if err := sync.ValidateConnString(c.DSN); err != nil {
		return err
	}
	if err := keyring.SetConnectionString(c.DSN); err != nil {
		return err
	}
	fmt.Println("Connection string stored. Sync runs automatically from now on.")
	return nil
}

type ConnectClearCmd struct{}

func (c *ConnectClearCmd) Run(cctx *Context) error {
	err := keyring.DeleteConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		fmt.Println("No connection string was stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("Connection string removed. Data stays local only.")
	return nil
}

type ConnectStatusCmd struct{}

func (c *ConnectStatusCmd) Run(cctx *Context) error {
	_, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		fmt.Println("Sync is configured via the OS keyring.")
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Println("Sync is not configured. Run `keystone connect set <dsn>`.")
	default:
		return err
	}
	return nil
}
