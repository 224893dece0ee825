package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password is required")
)

type commandLine struct {
	conf    *core.Config
	logger  core.Logger
	out     io.Writer
	db      *sql.DB
	usrRepo user.Repository
	connect func(ctx context.Context) error // opens db & usrRepo; nil when already set
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administration of the construction site management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.watchCmd(),
	)
	return root
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// withDB opens the database before running a command.
func (cli *commandLine) withDB(cmd *cobra.Command, _ []string) error {
	if cli.connect == nil {
		return nil
	}
	if err := cli.connect(cmd.Context()); err != nil {
		return errors.Wrap(err, "connecting to database")
	}
	cli.connect = nil
	return nil
}

func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}
