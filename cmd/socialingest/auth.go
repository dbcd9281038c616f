package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"socialingest/pkg/auth"
	"socialingest/pkg/instagram"
	"socialingest/pkg/logger"
)

// authCmd groups Instagram session management
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram sessions",
	Long: `Manage stored Instagram sessions.

Sessions are stored using the system keychain when available, falling
back to an encrypted file. A stored session lets future runs fetch
comments without logging in again.`,
}

// authLoginCmd performs credential login and stores the session
var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and store the session",
	Long: `Log in to Instagram with username and password and store the resulting
session for reuse. The password is read from the terminal and never stored.`,
	Example: `  # Prompted for everything
  socialingest auth login

  # Username given, prompted for the password
  socialingest auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

// authLogoutCmd removes a stored session
var authLogoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogout,
}

// authListCmd lists stored sessions with masked values
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	client := instagram.NewClient(cfg.Instagram.Timeout, cfg.Instagram.UserAgent, log)
	session, err := client.Login(context.Background(), username, string(password))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if err := manager.Save(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Printf("session stored for %s\n", username)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	fmt.Printf("session removed for %s\n", args[0])
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	sessions, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}

	for _, session := range sessions {
		masked := auth.Sanitize(session)
		fmt.Printf("%s\tsession=%s\tupdated=%s\n",
			masked.Username, masked.SessionID, masked.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
