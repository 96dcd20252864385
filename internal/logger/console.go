package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ConsoleLogger adds banner/table/progress-bar formatting on top of Logger,
// used by the poolctl demo CLI.
type ConsoleLogger struct {
	*Logger
	width       int
	interactive bool
}

// NewConsoleLoggerInstance creates a logger optimized for console interaction
func NewConsoleLoggerInstance() *ConsoleLogger {
	l := NewWithOutput(os.Stdout)
	l.EnableColor(true)
	l.SetPrefix("poolctl")

	return &ConsoleLogger{
		Logger:      l,
		width:       80,
		interactive: isTerminal(os.Stdout),
	}
}

// SetWidth sets the console width for formatting
func (c *ConsoleLogger) SetWidth(width int) {
	c.width = width
}

// Banner prints a styled banner message
func (c *ConsoleLogger) Banner(msg string) {
	if !c.interactive {
		c.Info("=== %s ===", msg)
		return
	}

	fmt.Fprintln(c.output)
	c.printLine("=")
	fmt.Fprintln(c.output, color.New(color.Bold, color.FgBlue).Sprint(center(msg, c.width-4)))
	c.printLine("=")
	fmt.Fprintln(c.output)
}

// Section prints a section header
func (c *ConsoleLogger) Section(title string) {
	if !c.interactive {
		c.Info("--- %s ---", title)
		return
	}

	fmt.Fprintf(c.output, "\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
	c.printLine("-")
}

// ProgressBar displays a visual progress bar
func (c *ConsoleLogger) ProgressBar(current, total, width int) {
	if !c.interactive {
		percentage := float64(current) / float64(total) * 100
		c.Info("Progress: %.1f%% (%d/%d)", percentage, current, total)
		return
	}

	percentage := float64(current) / float64(total) * 100
	filledWidth := int(float64(width) * percentage / 100)

	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", width-filledWidth)

	fmt.Fprintf(c.output, "  [%s] %.1f%%\n", color.GreenString(bar), percentage)
}

// ErrorBox prints an error in a formatted box
func (c *ConsoleLogger) ErrorBox(title string, message string, suggestions []string) {
	if !c.interactive {
		c.Error("%s: %s", title, message)
		for _, s := range suggestions {
			c.Info("Suggestion: %s", s)
		}
		return
	}

	boxWidth := c.width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	red := color.New(color.FgRed)
	fmt.Fprint(c.output, "\n")
	c.printBoxLine("┌", "─", "┐", boxWidth)
	c.printBoxContent(red.Sprintf("ERROR: %s", title), boxWidth)
	c.printBoxLine("├", "─", "┤", boxWidth)
	c.printBoxContent(message, boxWidth)

	if len(suggestions) > 0 {
		c.printBoxLine("├", "─", "┤", boxWidth)
		c.printBoxContent("Suggestions:", boxWidth)
		for _, s := range suggestions {
			c.printBoxContent(fmt.Sprintf("• %s", s), boxWidth)
		}
	}

	c.printBoxLine("└", "─", "┘", boxWidth)
}

// SuccessBox prints a success message in a formatted box
func (c *ConsoleLogger) SuccessBox(title string, message string) {
	if !c.interactive {
		c.Info("SUCCESS: %s - %s", title, message)
		return
	}

	boxWidth := c.width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	green := color.New(color.FgGreen)
	fmt.Fprint(c.output, "\n")
	c.printBoxLine("┌", "─", "┐", boxWidth)
	c.printBoxContent(green.Sprintf("✓ SUCCESS: %s", title), boxWidth)
	c.printBoxLine("├", "─", "┤", boxWidth)
	c.printBoxContent(message, boxWidth)
	c.printBoxLine("└", "─", "┘", boxWidth)
}

// Table prints data in a formatted table
func (c *ConsoleLogger) Table(headers []string, rows [][]string) {
	if !c.interactive || len(headers) == 0 {
		for _, row := range rows {
			c.Info(strings.Join(row, " | "))
		}
		return
	}

	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	fmt.Fprint(c.output, "\n")
	c.printTableRow(headers, colWidths)

	separator := make([]string, len(headers))
	for i, width := range colWidths {
		separator[i] = strings.Repeat("─", width)
	}
	c.printTableRow(separator, colWidths)

	for _, row := range rows {
		c.printTableRow(row, colWidths)
	}
	fmt.Fprintln(c.output)
}

// Spinner provides a simple text-based spinner for long-running operations.
type Spinner struct {
	logger  *ConsoleLogger
	message string
	frames  []string
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a new spinner with the given message
func (c *ConsoleLogger) NewSpinner(message string) *Spinner {
	if !c.interactive {
		c.Info("%s...", message)
		return &Spinner{logger: c, message: message}
	}

	return &Spinner{
		logger:  c,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	if !s.logger.interactive {
		return
	}

	go func() {
		defer close(s.done)

		frame := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				fmt.Fprintf(s.logger.output, "\r%s %s", color.YellowString(s.frames[frame]), s.message)
				frame = (frame + 1) % len(s.frames)
			}
		}
	}()
}

// Stop stops the spinner and clears the line
func (s *Spinner) Stop() {
	if !s.logger.interactive {
		return
	}

	close(s.stop)
	<-s.done

	fmt.Fprintf(s.logger.output, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// StopWithMessage stops the spinner and displays a final message
func (s *Spinner) StopWithMessage(success bool, message string) {
	if !s.logger.interactive {
		if success {
			s.logger.Info("✓ %s", message)
		} else {
			s.logger.Error("✗ %s", message)
		}
		return
	}

	s.Stop()

	if success {
		fmt.Fprintf(s.logger.output, "%s %s\n", color.GreenString("✓"), message)
	} else {
		fmt.Fprintf(s.logger.output, "%s %s\n", color.RedString("✗"), message)
	}
}

// printLine prints a line of characters across the console width
func (c *ConsoleLogger) printLine(char string) {
	fmt.Fprintf(c.output, "%s\n", strings.Repeat(char, c.width))
}

// printBoxLine prints a box border line
func (c *ConsoleLogger) printBoxLine(left, middle, right string, width int) {
	fmt.Fprintf(c.output, "%s%s%s\n", left, strings.Repeat(middle, width-2), right)
}

// printBoxContent prints content inside a box with proper padding
func (c *ConsoleLogger) printBoxContent(content string, width int) {
	padding := width - 4 - len(content)
	if padding < 0 {
		content = content[:width-7] + "..."
		padding = 0
	}
	fmt.Fprintf(c.output, "│ %s%s │\n", content, strings.Repeat(" ", padding))
}

// printTableRow prints a table row with proper column alignment
func (c *ConsoleLogger) printTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i < len(widths) {
			fmt.Fprintf(c.output, "%-*s", widths[i], cell)
			if i < len(cells)-1 {
				fmt.Fprint(c.output, " │ ")
			}
		}
	}
	fmt.Fprintln(c.output)
}

// center centers text within a given width
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}

	padding := width - len(text)
	leftPad := padding / 2
	rightPad := padding - leftPad

	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", rightPad)
}

// Console is the global console logger instance used by cmd/poolctl.
var Console = NewConsoleLoggerInstance()

// Banner prints a banner using the global console logger
func Banner(msg string) { Console.Banner(msg) }

// Section prints a section header using the global console logger
func Section(title string) { Console.Section(title) }

// Table displays a table using the global console logger
func Table(headers []string, rows [][]string) { Console.Table(headers, rows) }

// ProgressBar displays a progress bar using the global console logger
func ProgressBar(current, total, width int) { Console.ProgressBar(current, total, width) }

// ErrorBox displays an error box using the global console logger
func ErrorBox(title string, message string, suggestions []string) {
	Console.ErrorBox(title, message, suggestions)
}

// SuccessBox displays a success box using the global console logger
func SuccessBox(title string, message string) { Console.SuccessBox(title, message) }

// NewSpinner creates a new spinner using the global console logger
func NewSpinner(message string) *Spinner { return Console.NewSpinner(message) }
