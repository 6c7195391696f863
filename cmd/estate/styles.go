package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	BrandTeal = lipgloss.Color("#0EA5A4")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
	Amber     = lipgloss.Color("#F59E0B")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(BrandTeal)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	PriceStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Width(20)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(BrandTeal).
			Padding(0, 1)
)

// SpinnerFrames are the braille spinner animation frames
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

// styled is false when stdout is piped; output is then plain text
var styled = term.IsTerminal(int(os.Stdout.Fd()))

func render(style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

func renderTitle(s string) string   { return render(TitleStyle, s) }
func renderDim(s string) string     { return render(DimStyle, s) }
func renderAccent(s string) string  { return render(AccentStyle, s) }
func renderSuccess(s string) string { return render(SuccessStyle, s) }
func renderPrice(s string) string   { return render(PriceStyle, s) }
func renderBadge(s string) string   { return render(BadgeStyle, s) }

func renderLabel(s string) string {
	if !styled {
		return fmt.Sprintf("%-20s", s)
	}
	return LabelStyle.Render(s)
}

func renderError(err error) string {
	return render(ErrorStyle, "Error: "+err.Error())
}

// startSpinner animates msg on stdout until the returned stop is called.
// Nothing is drawn when stdout is not a terminal.
func startSpinner(msg string) (stop func()) {
	if !styled {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		frame := 0
		fmt.Printf("\r%s %s", SpinnerFrames[frame], msg)
		for {
			select {
			case <-done:
				fmt.Print(clearSpinnerLine)
				return
			case <-ticker.C:
				frame++
				fmt.Printf("\r%s %s", SpinnerFrames[frame%len(SpinnerFrames)], msg)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
