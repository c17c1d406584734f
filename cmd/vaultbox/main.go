package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/scode/vaultbox/internal/preader"
	"github.com/scode/vaultbox/internal/vault"
)

func readPassphrase(pr preader.PassphraseReader) (string, error) {
	phrase, err := pr.ReadPassphrase()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return phrase, nil
}

func doCreate(path string, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Create(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer h.Close()

	fmt.Fprintf(os.Stdout, "created %s\n", path)
	return nil
}

func doInfo(path string, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Open(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer h.Close()

	filename, numRecords, lastEdit := h.Info()
	fmt.Fprintf(os.Stdout, "file: %s\nrecords: %d\nlast edit: %s\n", filename, numRecords, lastEdit.Format(time.RFC3339))
	return nil
}

func doList(path string, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Open(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer h.Close()

	records, err := h.List()
	if err != nil {
		if errors.Is(err, vault.ErrNoRecords) {
			fmt.Fprintln(os.Stdout, "(no records)")
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", path, err)
	}

	for _, r := range records {
		fmt.Fprintf(os.Stdout, "%s\t%d\t%s\n", r.Name, r.PassSize, r.CreateTime.Format(time.RFC3339))
	}
	return nil
}

func doGet(path, name string, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Open(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer h.Close()

	plain, err := h.Get(name)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", name, err)
	}
	defer zeroizeLocal(plain)

	// Only the password bytes, not the NUL padding, are meaningful to the
	// caller; find the terminator the generator guarantees is present.
	end := len(plain)
	for i, b := range plain {
		if b == 0 {
			end = i
			break
		}
	}
	fmt.Fprintln(os.Stdout, string(plain[:end]))
	return nil
}

func zeroizeLocal(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

func doAdd(path, name string, size, count int, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Open(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer h.Close()

	if count <= 1 {
		if err := h.Add(name, size); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		fmt.Fprintf(os.Stdout, "added %s\n", name)
		return nil
	}

	// --count > 1: pre-generate every candidate password concurrently,
	// then add each one under its own numbered name, serially, on this
	// goroutine (the handle itself is not safe for concurrent mutation).
	candidates, err := vault.GenerateCandidates(context.Background(), count, size)
	if err != nil {
		return fmt.Errorf("failed to pre-generate candidates: %w", err)
	}
	for i, plain := range candidates {
		recordName := fmt.Sprintf("%s-%d", name, i+1)
		addErr := h.AddWithPassword(recordName, plain, size)
		zeroizeLocal(plain)
		if addErr != nil {
			return fmt.Errorf("failed to add %s: %w", recordName, addErr)
		}
	}
	fmt.Fprintf(os.Stdout, "added %d records named %s-N\n", count, name)
	return nil
}

func doRemove(path, name string, pr preader.PassphraseReader) error {
	passphrase, err := readPassphrase(pr)
	if err != nil {
		return err
	}

	h, err := vault.Open(path, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer h.Close()

	if err := h.Delete(name); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	fmt.Fprintf(os.Stdout, "removed %s\n", name)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "vaultbox"
	app.Version = "master"
	app.Usage = "a local, encrypted, generated-password vault"

	var sizeArg int
	var countArg int

	app.Commands = []cli.Command{
		{
			Name:      "create",
			Usage:     "create a new, empty vault",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("create requires exactly one argument: <path>")
				}
				return doCreate(c.Args().Get(0), &preader.StdinPassphraseReader{})
			},
		},
		{
			Name:      "info",
			Aliases:   []string{"open"},
			Usage:     "print a vault's filename, record count and last-edit time",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("info requires exactly one argument: <path>")
				}
				return doInfo(c.Args().Get(0), &preader.StdinPassphraseReader{})
			},
		},
		{
			Name:      "list",
			Usage:     "list every record in a vault",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("list requires exactly one argument: <path>")
				}
				return doList(c.Args().Get(0), &preader.StdinPassphraseReader{})
			},
		},
		{
			Name:      "get",
			Usage:     "print a record's password",
			ArgsUsage: "<path> <name>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("get requires exactly two arguments: <path> <name>")
				}
				return doGet(c.Args().Get(0), c.Args().Get(1), &preader.StdinPassphraseReader{})
			},
		},
		{
			Name:      "add",
			Usage:     "generate and add a new password record",
			ArgsUsage: "<path> <name>",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:        "size, s",
					Usage:       "password length in characters",
					Value:       16,
					Destination: &sizeArg,
				},
				cli.IntFlag{
					Name:        "count, n",
					Usage:       "number of records to generate, named <name>-1..<name>-N",
					Value:       1,
					Destination: &countArg,
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("add requires exactly two arguments: <path> <name>")
				}
				return doAdd(c.Args().Get(0), c.Args().Get(1), sizeArg, countArg, &preader.StdinPassphraseReader{})
			},
		},
		{
			Name:      "remove",
			Aliases:   []string{"rm", "delete"},
			Usage:     "delete a record from a vault",
			ArgsUsage: "<path> <name>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("remove requires exactly two arguments: <path> <name>")
				}
				return doRemove(c.Args().Get(0), c.Args().Get(1), &preader.StdinPassphraseReader{})
			},
		},
	}

	app.Action = func(c *cli.Context) error {
		return errors.New("command is required; use help to see list of commands")
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

