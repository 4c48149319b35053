package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"blinkmon/host/config"
	"blinkmon/host/logger"
	"blinkmon/host/mcu"
	"blinkmon/host/serial"
)

func main() {
	cfg, err := config.Load("blinkmon-term", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Debug, cfg.Log.Verbose)

	fmt.Println("Blinkmon Terminal - LED blinker console")
	fmt.Println("=======================================")

	board := mcu.NewMCU(os.Stdout)

	fmt.Printf("Connecting to board on %s...\n", cfg.Serial.Device)
	err = board.ConnectWithConfig(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeoutMs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer board.Close()

	fmt.Println("Connected successfully!")
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")

	if err := repl(board, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// lineSender is the part of the board connection the prompt needs
type lineSender interface {
	SendLine(line string) error
	PrintDictionary(w io.Writer)
}

// repl forwards lines to the board until quit or end of input. Board output
// arrives asynchronously on stdout.
func repl(board lineSender, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch strings.TrimSpace(line) {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case "help", "?":
			printHelp(out)
			board.PrintDictionary(out)
			continue
		}

		if err := board.SendLine(line); err != nil {
			if errors.Is(err, serial.ErrLineTooLong) {
				fmt.Fprintf(out, "Not sent: %v\n", err)
				continue
			}
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nLocal commands:")
	fmt.Fprintln(out, "  help           - Show this help message")
	fmt.Fprintln(out, "  quit/exit/q    - Exit the program")
	fmt.Fprintln(out, "Every other line is sent to the board as typed.")
}
