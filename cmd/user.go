/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/contactbook/apiserver/config"
	"github.com/contactbook/apiserver/internal/db"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	newUsername string
	newPassword string
	newRoles    []string
)

// userCmd groups login user maintenance.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage login users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a login user",
	Long: `Create a login user. ROLE_USER is always granted. Usage:

	contactbook user create --username admin --password secret --role ROLE_ADMIN
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		newLogger(cfg.LogLevel)

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		userService := services.NewUserService(store.NewUserRepository(conn))
		user, err := userService.Create(cmd.Context(), services.NewUser{
			Username: newUsername,
			Password: newPassword,
			Roles:    newRoles,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created user %d %s [%s]\n", user.ID, user.Username, strings.Join(user.Roles, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "login name")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "plain text password, hashed with bcrypt")
	userCreateCmd.Flags().StringSliceVar(&newRoles, "role", nil, "granted roles (ROLE_EDITOR, ROLE_ADMIN)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
}
