package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// emailFile remembers the user's email between runs.
const emailFile = ".email"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// resolveEmail loads the saved email, prompting for one on first use.
func resolveEmail() (string, error) {
	email, err := loadEmail()
	if err != nil {
		return "", err
	}
	if email != "" {
		return email, nil
	}

	email, err = promptEmail()
	if err != nil {
		return "", err
	}
	if err := saveEmail(email); err != nil {
		return "", err
	}
	return email, nil
}

func loadEmail() (string, error) {
	data, err := os.ReadFile(emailFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", emailFile, err)
	}

	var stored struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt file just means we prompt again.
		return "", nil
	}
	return stored.Email, nil
}

func saveEmail(email string) error {
	data, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("encoding email: %w", err)
	}
	if err := os.WriteFile(emailFile, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", emailFile, err)
	}
	return nil
}

func promptEmail() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter your email address: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		email := strings.TrimSpace(line)
		if emailPattern.MatchString(email) {
			return email, nil
		}
		fmt.Println("Invalid email address. Please try again.")
	}
}
