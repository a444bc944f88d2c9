package tui

import (
	"fmt"

	"github.com/pterm/pterm"
)

type PtermUI struct{}

func NewPtermUI() *PtermUI { return &PtermUI{} }

func (PtermUI) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options to select from")
	}
	interrupted := false
	result, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText(title).
		WithMaxHeight(12).
		WithFilter(false).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show()
	if interrupted {
		return 0, ErrAborted
	}
	if err != nil {
		return 0, fmt.Errorf("menu selection: %w", err)
	}
	for i, opt := range options {
		if opt == result {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown option %q", result)
}

func (PtermUI) Input(prompt string) (string, error) {
	interrupted := false
	result, err := pterm.DefaultInteractiveTextInput.
		WithDefaultText(prompt).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show()
	if interrupted {
		return "", ErrAborted
	}
	if err != nil {
		return "", fmt.Errorf("text input: %w", err)
	}
	return result, nil
}

func (PtermUI) Confirm(prompt string, defaultYes bool) (bool, error) {
	interrupted := false
	result, err := pterm.DefaultInteractiveConfirm.
		WithDefaultText(prompt).
		WithDefaultValue(defaultYes).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show()
	if interrupted {
		return false, ErrAborted
	}
	if err != nil {
		return false, fmt.Errorf("confirm dialog: %w", err)
	}
	return result, nil
}

func (PtermUI) Header(title string) {
	pterm.DefaultSection.Println(title)
}

func (PtermUI) Info(msg string)    { pterm.Info.Println(msg) }
func (PtermUI) Success(msg string) { pterm.Success.Println(msg) }
func (PtermUI) Warning(msg string) { pterm.Warning.Println(msg) }
func (PtermUI) Failure(msg string) { pterm.Error.Println(msg) }

func (PtermUI) Table(header []string, rows [][]string) {
	data := append([][]string{header}, rows...)
	_ = pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
}

func (PtermUI) Pending(msg string) Pending {
	spinner, err := pterm.DefaultSpinner.WithText(msg).Start()
	if err != nil {
		pterm.Info.Println(msg)
		return staticPending{}
	}
	return spinnerPending{spinner: spinner}
}

type spinnerPending struct {
	spinner *pterm.SpinnerPrinter
}

func (s spinnerPending) Succeed(msg string) { s.spinner.Success(msg) }
func (s spinnerPending) Fail(msg string)    { s.spinner.Fail(msg) }

type staticPending struct{}

func (staticPending) Succeed(msg string) { pterm.Success.Println(msg) }
func (staticPending) Fail(msg string)    { pterm.Error.Println(msg) }
