package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var uname, email, name, role string
	cmd := &cobra.Command{
		Use:     "adduser",
		Short:   "Create a user, or update the user with the same username or email. The password is prompted.",
		Args:    cobra.NoArgs,
		PreRunE: cli.withDB,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validRole(role) {
				return errors.Errorf("invalid role %q", role)
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), uname, email, name, role, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %q saved (%s)\n", usr.Username, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "full name (default: the username)")
	cmd.Flags().StringVar(&role, "role", user.RoleAdmin, "role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func validRole(role string) bool {
	for _, r := range user.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(ctx context.Context, uname, email, name, role, pwd string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		usr = user.User{Username: uname, Email: email}
	}
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	usr.Role = role
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.UpdateOrCreateUser(ctx, usr)
}
