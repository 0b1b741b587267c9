// Command hash-password prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	hash-password                 # prompts twice, no echo
//	echo -n secret | hash-password
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	cost := pflag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	envLine := pflag.Bool("env", false, "print as an ADMIN_PASSWORD_HASH= line")
	pflag.Parse()

	password, err := readPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-password: %v\n", err)
		os.Exit(1)
	}

	hash, err := hashPassword(password, *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-password: %v\n", err)
		os.Exit(1)
	}

	if *envLine {
		// Single quotes keep the $ separators literal for godotenv and shells.
		fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
		return
	}
	fmt.Println(hash)
}

// hashPassword trims the password the same way admin verification does.
func hashPassword(password []byte, cost int) (string, error) {
	password = bytes.TrimSpace(password)
	if len(password) == 0 {
		return "", fmt.Errorf("password is empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	hash, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func readPassword() ([]byte, error) {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		// Piped: read one line without prompting.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("reading password from stdin: %w", err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password confirmation: %w", err)
	}

	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return first, nil
}
