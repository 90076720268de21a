// Command cli is the operator tool for the vault server: account
// management and device-key generation without going through the web
// layer.
//
// Usage:
//
//	cli create <username>            create an account (password prompted)
//	cli verify <username>            check a master password
//	cli devices <username>           list registered devices
//	cli delete <username>            delete an account and its devices
//	cli keygen <output-file>         generate a device key, export it
//	                                 password-encrypted, print the public key
//
// Database and secret settings come from the usual flags/JSON config.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/deviceid"
	"github.com/DawPastrator/server/internal/server"
	"github.com/DawPastrator/server/internal/server/config"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := positionalArgs(os.Args[1:])
	if len(args) < 2 {
		return errors.New("usage: cli <create|verify|devices|delete|keygen> <argument>")
	}
	command, argument := args[0], args[1]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command == "keygen" {
		return keygen(argument)
	}

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	switch command {
	case "create":
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		id, err := app.Accounts.CreateAccount(ctx, argument, password)
		if err != nil {
			return err
		}
		fmt.Printf("created account %q with id %d\n", argument, id)
		return nil

	case "verify":
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		ok, err := app.Accounts.VerifyMasterPassword(ctx, argument, password)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrUnauthorized
		}
		fmt.Println("password ok")
		return nil

	case "devices":
		id, err := app.Accounts.GetUserID(ctx, argument)
		if err != nil {
			return err
		}
		devices, err := app.Accounts.GetDevices(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("%s\t%s\n", d.DeviceID, d.PublicKey)
		}
		return nil

	case "delete":
		id, err := app.Accounts.GetUserID(ctx, argument)
		if err != nil {
			return err
		}
		if err := app.Accounts.DeleteAccount(ctx, id); err != nil {
			return err
		}
		fmt.Printf("deleted account %q\n", argument)
		return nil
	}

	return fmt.Errorf("unknown command %q", command)
}

// keygen creates a device identity, writes its password-encrypted export
// to path, and prints the public key for registration.
func keygen(path string) error {
	password, err := promptPassword("Export password: ")
	if err != nil {
		return err
	}

	id := deviceid.New()
	if err := id.Generate(); err != nil {
		return err
	}

	container, err := id.Export(password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, container, 0o600); err != nil {
		return err
	}

	pub, err := id.PublicKeyBase64()
	if err != nil {
		return err
	}
	fmt.Printf("device key written to %s\npublic key: %s\n", path, pub)
	return nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// positionalArgs strips flags (and their values) so the subcommand parser
// only sees positional arguments; config flags are handled elsewhere.
func positionalArgs(args []string) []string {
	out := []string{}
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if !strings.Contains(args[i], "=") && i+1 < len(args) {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}
