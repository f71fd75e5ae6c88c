package credential

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalPrompt returns a PromptFunc that reads the password from the
// terminal without echo. It fails when stdin is not a terminal.
func TerminalPrompt(out io.Writer) PromptFunc {
	return func(user string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("stdin is not a terminal")
		}
		fmt.Fprintf(out, "Password for %s: ", user)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
}
