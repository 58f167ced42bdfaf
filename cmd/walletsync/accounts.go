package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletsync/internal/action"
	"walletsync/internal/cli"
	"walletsync/internal/screen"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List and manage accounts",
		RunE:  runAccountsList,
	}
	cmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List accounts with their current balance", RunE: runAccountsList},
		accountsSaveCmd("add", "Create an account"),
		accountsSaveCmd("edit ACCOUNT_ID", "Change an account's name or initial balance"),
		avatarCmd(),
		migrateBalancesCmd(),
	)
	return cmd
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	userID, err := app.UserID()
	if err != nil {
		return err
	}
	s := screen.NewAccounts(userID, app.Gateway, app.Bus, app.Logger)
	if err := s.Refresh(cmd.Context(), true); err != nil {
		return err
	}
	v := s.View()

	fmt.Println(cli.TitleStyle.Render("Accounts"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"), cli.HeaderStyle.Render("Name"),
		cli.HeaderStyle.Render("Initial"), cli.HeaderStyle.Render("Balance"))
	for _, a := range v.Accounts {
		bal := cli.FormatAmount(a.Current)
		if a.Drifted {
			bal += " " + cli.WarningStyle.Render("(stored "+a.Account.Balance.String()+")")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Account.ID, a.Account.Name, a.Account.InitialBalance, bal)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nNet worth: %s\n", cli.FormatAmount(v.NetWorth))
	return nil
}

func accountsSaveCmd(use, short string) *cobra.Command {
	var in action.AccountInput
	editing := use != "add"
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := ""
			if editing {
				if len(args) != 1 {
					return fmt.Errorf("account id is required")
				}
				id = args[0]
				cur, err := app.Gateway.GetAccount(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					in.Name = cur.Name
				}
				if !cmd.Flags().Changed("initial-balance") {
					in.InitialBalance = cur.InitialBalance.String()
				}
				in.AvatarURL = cur.AvatarURL
			}
			fields, err := in.Fields()
			if err != nil {
				return err
			}
			a, err := app.AccountForm(app.Publisher()).Submit(ctx, id, fields)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Saved account %s (%s)", a.Name, a.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "account name")
	cmd.Flags().StringVar(&in.InitialBalance, "initial-balance", "", "opening balance, may be negative")
	return cmd
}

func avatarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar ACCOUNT_ID FILE.jpg",
		Short: "Upload a JPEG avatar for an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jpeg, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			a, err := app.AccountForm(app.Publisher()).SetAvatar(cmd.Context(), args[0], jpeg)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Avatar set: " + a.AvatarURL))
			return nil
		},
	}
}

func migrateBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-balances",
		Short: "Rewrite stored balances from initial balance and transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := app.UserID()
			if err != nil {
				return err
			}
			accounts, err := app.Gateway.MigrateBalances(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%s\t%s\n", a.Name, cli.FormatAmount(a.Balance))
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Migrated %d accounts", len(accounts))))
			return nil
		},
	}
}
