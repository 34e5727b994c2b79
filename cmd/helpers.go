package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/service"
)

// openService builds a service against the default data directory
func openService() (*service.Service, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return service.Open(cfg)
}

// requireActor opens the service and resolves the current session.
// Commands that act on behalf of an operator start here.
func requireActor() (*service.Service, service.Actor, error) {
	svc, err := openService()
	if err != nil {
		return nil, service.Actor{}, err
	}
	actor, err := svc.CurrentActor()
	if err != nil {
		svc.Close()
		return nil, service.Actor{}, err
	}
	return svc, actor, nil
}

// promptPassword reads a password without echoing it
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// promptLine reads one line of input with the prompt shown
func promptLine(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseID parses a positional record id argument
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// confirmPhrase requires the operator to type an exact phrase before a
// destructive operation proceeds
func confirmPhrase(prompt, phrase string) (bool, error) {
	fmt.Printf("%s\nType %s to confirm: ", prompt, phrase)
	var response string
	fmt.Scanln(&response)
	return response == phrase, nil
}
