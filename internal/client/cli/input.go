package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetCode prompts for a one-time code and strips the spaces people paste
// along with it ("123 456").
func GetCode(reader *bufio.Reader, w io.Writer) (string, error) {
	s, err := GetSimpleText(reader, "Enter the 6-digit code from your e-mail", w)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(s, " ", ""), nil
}
