package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"
)

var ErrCancelled = errors.New("cancelled")

// WaitForCancel returns a context that is canceled on Ctrl+C
func WaitForCancel(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Confirm prompts the user for a yes/no answer.
func Confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print(prompt + " (y/n): ")
		var input string
		if _, err := fmt.Scanln(&input); err != nil {
			return false, nil
		}
		return strings.EqualFold(strings.TrimSpace(input), "y"), nil
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return false, err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	fmt.Print(prompt + " (y/n): ")

	for {
		b := make([]byte, 1)
		_, err := os.Stdin.Read(b)
		if err != nil {
			return false, err
		}

		if b[0] == 3 { // Ctrl+C
			fmt.Print("^C\r\n")
			return false, ErrCancelled
		}

		char := strings.ToLower(string(b[0]))
		if char == "y" {
			fmt.Print("y\r\n")
			return true, nil
		}
		if char == "n" {
			fmt.Print("n\r\n")
			return false, nil
		}
	}
}
