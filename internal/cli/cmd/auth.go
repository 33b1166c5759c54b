package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"craftcloud/pkg/sdk"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var validate = validator.New()

var stdinReader = bufio.NewReader(os.Stdin)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleLogin(args[0])
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Run: func(cmd *cobra.Command, args []string) {
		handleLogout()
	},
}

var registerEmail string

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleRegister(args[0], registerEmail)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address")
	registerCmd.MarkFlagRequired("email")

	RootCmd.AddCommand(loginCmd, logoutCmd, registerCmd)
}

type registrationForm struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Confirm  string `validate:"eqfield=Password"`
}

func (f registrationForm) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, describeFieldError(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return strings.ToLower(fe.Field()) + " is required"
	case "email":
		return "please enter a valid email address"
	case "min":
		return "password must be at least 8 characters long"
	case "eqfield":
		return "passwords do not match"
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
}

// readSecret prompts with echo disabled on a terminal and reads a plain
// line otherwise, so scripted input still works.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func handleLogin(username string) {
	password, err := readSecret("Password: ")
	if err != nil {
		log.Fatalf("Error reading password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := Session.Login(ctx, username, password); err != nil {
		if errors.Is(err, sdk.ErrInvalidCredentials) {
			log.Fatal("Login failed: incorrect username or password")
		}
		log.Fatalf("Error logging in: %v", err)
	}
	fmt.Printf("Logged in as %s\n", username)
}

func handleLogout() {
	if !Session.Active() {
		fmt.Println("No active session.")
		return
	}
	Session.Logout()
	fmt.Println("Logged out.")
}

func handleRegister(username, email string) {
	password, err := readSecret("Password: ")
	if err != nil {
		log.Fatalf("Error reading password: %v", err)
	}
	confirm, err := readSecret("Confirm password: ")
	if err != nil {
		log.Fatalf("Error reading password: %v", err)
	}

	form := registrationForm{Username: username, Email: email, Password: password, Confirm: confirm}
	if err := form.Validate(); err != nil {
		log.Fatalf("Registration error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = Client.Register(ctx, sdk.RegisterRequest{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		log.Fatalf("Registration error: %s", sdk.Message(err))
	}
	fmt.Println("Account created successfully! Please login.")
}
