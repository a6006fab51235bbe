package player

import (
	"bufio"
	"fmt"
	"io"
	"unicode"

	"github.com/pixil98/go-savestate/internal/display"
)

const (
	maxNameTries  = 3
	maxNameLength = 16
)

type loginFlow struct {
	greeting string
}

// Run asks for a display name until the player confirms one.
func (f *loginFlow) Run(br *bufio.Reader, w io.Writer) (string, error) {
	if f.greeting != "" {
		if _, err := io.WriteString(w, f.greeting+"\n"); err != nil {
			return "", err
		}
	}

	for {
		name, err := Prompt(br, w, "By what name do you wish to be known? ",
			WithMaxTries(maxNameTries),
			WithValidator(validName),
		)
		if err != nil {
			return "", err
		}
		name = display.Title(name)

		ok, err := PromptYN(br, w, fmt.Sprintf("Did I get that right, %s (Y/N)? ", name))
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
}

func validName(str string) (bool, string) {
	if len(str) == 0 || len(str) > maxNameLength {
		return false, "Invalid name, please try another.\n"
	}
	for _, r := range str {
		if !unicode.IsLetter(r) {
			return false, "Invalid name, please try another.\n"
		}
	}
	return true, ""
}
