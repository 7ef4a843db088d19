package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	urfave "github.com/urfave/cli/v2"
	"github.com/zalando/go-keyring"
)

const (
	appTokenEnvVar = "SOCRATA_APP_TOKEN"

	tokenFileName  = "socrata_token"
	keyringService = "fleetsight"
	keyringUser    = "socrata_token"
)

var (
	tokenFlag = &urfave.StringFlag{
		Name:        "token",
		Usage:       "Socrata app token",
		EnvVars:     []string{appTokenEnvVar},
		DefaultText: "variable",
	}

	authCmd = &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Manage the Socrata app token used for FMCSA imports",
		Subcommands: []*urfave.Command{
			{
				Name:   "set",
				Usage:  "Store the app token in the OS keychain",
				Action: cmdAuthSet,
				Flags:  []urfave.Flag{tokenFlag},
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored app token",
				Action: cmdAuthClear,
			},
		},
	}
)

func cmdAuthSet(c *urfave.Context) error {
	token := c.String(tokenFlag.Name)
	if token == "" {
		return urfave.ShowSubcommandHelp(c)
	}

	if err := saveAppToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Println("Token saved")
	return nil
}

func cmdAuthClear(_ *urfave.Context) error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil {
		slog.Debug("keychain delete", "error", err)
	}
	os.Remove(path.Join(getHomeDir(), tokenFileName))
	fmt.Println("Token cleared")
	return nil
}

func saveAppToken(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return os.WriteFile(path.Join(getHomeDir(), tokenFileName), []byte(token), 0600)
	}

	// clean up a leftover file copy
	os.Remove(path.Join(getHomeDir(), tokenFileName))
	return nil
}

// getAppToken returns the stored Socrata token, empty when none is set.
// Imports work without a token, just with tighter rate limits.
func getAppToken() string {
	if t := os.Getenv(appTokenEnvVar); t != "" {
		return t
	}

	if t, err := keyring.Get(keyringService, keyringUser); err == nil && t != "" {
		return t
	}

	b, err := os.ReadFile(path.Join(getHomeDir(), tokenFileName))
	if err != nil {
		return ""
	}

	// migrate the file copy to the keychain
	if migrateErr := keyring.Set(keyringService, keyringUser, string(b)); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		os.Remove(path.Join(getHomeDir(), tokenFileName))
	}
	return string(b)
}
