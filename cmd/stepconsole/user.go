package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/userstore"
)

// User command flags
var userPassword string

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,}$`)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local console accounts",
	Long: `Manage the local console accounts stored in the password file.

Accounts managed here authenticate against the console itself; Active
Directory accounts are managed in the directory, not here.

Examples:
  stepconsole user add alice --password "s3cret-pass"
  stepconsole user list
  stepconsole user del alice`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username> [password]",
	Short: "Add a local user or reset its password",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUserAdd,
}

var userDelCmd = &cobra.Command{
	Use:   "del <username>",
	Short: "Delete a local user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDel,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local users",
	RunE:  runUserList,
}

func init() {
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "",
		"Password for the account (read from stdin when omitted)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDelCmd)
	userCmd.AddCommand(userListCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username must be at least 3 characters of letters, digits, dot, underscore or hyphen")
	}

	password := userPassword
	if len(args) == 2 {
		password = args[1]
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	store := userstore.New(cfg.PasswordFile, cfg.BcryptCost)
	if err := store.Upsert(username, password); err != nil {
		return err
	}

	audit.LogUserSaved(audit.ClientCLI, audit.Anonymous, username)
	fmt.Printf("User %s saved\n", username)
	return nil
}

func runUserDel(cmd *cobra.Command, args []string) error {
	username := args[0]
	if username == "admin" {
		return fmt.Errorf("the admin account cannot be deleted")
	}

	store := userstore.New(cfg.PasswordFile, cfg.BcryptCost)
	users, err := store.List()
	if err != nil {
		return err
	}
	if !containsUser(users, username) {
		return fmt.Errorf("user %s not found", username)
	}

	if err := store.Remove(username); err != nil {
		return err
	}

	audit.LogUserDeleted(audit.ClientCLI, audit.Anonymous, username)
	fmt.Printf("User %s deleted\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	store := userstore.New(cfg.PasswordFile, cfg.BcryptCost)
	users, err := store.List()
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("No local users")
		return nil
	}
	for _, user := range users {
		fmt.Println(user)
	}
	return nil
}

func containsUser(users []string, username string) bool {
	for _, u := range users {
		if u == username {
			return true
		}
	}
	return false
}
