package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

// Markers prefixed to result lines by the line UI.
const (
	SuccessMarker = "✔"
	FailureMarker = "✖"
	WarningMarker = "⚠"
)

// LineUI prompts with numbered menus over plain text streams.
type LineUI struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLineUI(r io.Reader, w io.Writer) *LineUI {
	return &LineUI{in: bufio.NewReader(r), out: w}
}

func (u *LineUI) readLine() (string, error) {
	line, err := u.in.ReadString('\n')
	if err != nil {
		// a final line without newline still counts
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (u *LineUI) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options to select from")
	}
	for {
		fmt.Fprintln(u.out, title)
		for i, opt := range options {
			fmt.Fprintf(u.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(u.out, "Choose an option: ")

		line, err := u.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(u.out, "%s invalid option %q\n", FailureMarker, strings.TrimSpace(line))
	}
}

func (u *LineUI) Input(prompt string) (string, error) {
	fmt.Fprintf(u.out, "%s: ", prompt)
	return u.readLine()
}

func (u *LineUI) Confirm(prompt string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	fmt.Fprintf(u.out, "%s (%s): ", prompt, hint)
	line, err := u.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (u *LineUI) Header(title string) {
	fmt.Fprintf(u.out, "\n== %s ==\n", title)
}

func (u *LineUI) Info(msg string)    { fmt.Fprintln(u.out, msg) }
func (u *LineUI) Success(msg string) { fmt.Fprintf(u.out, "%s %s\n", SuccessMarker, msg) }
func (u *LineUI) Warning(msg string) { fmt.Fprintf(u.out, "%s %s\n", WarningMarker, msg) }
func (u *LineUI) Failure(msg string) { fmt.Fprintf(u.out, "%s %s\n", FailureMarker, msg) }

func (u *LineUI) Table(header []string, rows [][]string) {
	data := append([][]string{header}, rows...)
	out, err := pterm.DefaultTable.WithData(data).Srender()
	if err != nil {
		for _, row := range data {
			fmt.Fprintln(u.out, strings.Join(row, "\t"))
		}
		return
	}
	fmt.Fprintln(u.out, pterm.RemoveColorFromString(out))
}

func (u *LineUI) Pending(msg string) Pending {
	fmt.Fprintf(u.out, "… %s\n", msg)
	return linePending{ui: u}
}

type linePending struct {
	ui *LineUI
}

func (p linePending) Succeed(msg string) { p.ui.Success(msg) }
func (p linePending) Fail(msg string)    { p.ui.Failure(msg) }
