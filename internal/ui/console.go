// Package ui renders the interactive terminal screens of the CLI.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Amr-9/VanityMint/internal/service"
	"github.com/Amr-9/VanityMint/pkg/generator"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Console reads prompts from in and writes screens to out.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a Console.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ClearScreen clears the terminal
func (c *Console) ClearScreen() {
	c.printf("\033[H\033[2J")
}

// PrintWelcomeBanner shows the welcome screen
func (c *Console) PrintWelcomeBanner(version string) {
	c.printf("\n%s%s", ColorCyan, ColorBold)
	c.printf("  ╔══════════════════════════════════════════════════════╗\n")
	c.printf("  ║   ◎  V A N I T Y M I N T                             ║\n")
	c.printf("  ╠══════════════════════════════════════════════════════╣\n")
	c.printf("  ║%s   Solana vanity mint addresses %s• v%-10s%s         ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	c.printf("  ╚══════════════════════════════════════════════════════╝\n")
	c.printf("%s\n", ColorReset)
}

// PrintSearchInfo displays search configuration
func (c *Console) PrintSearchInfo(cfg *generator.Config, difficulty uint64) {
	c.printf("\n    %s🚀 SEARCHING%s", ColorGreen+ColorBold, ColorReset)
	if cfg.Prefix != "" {
		c.printf(" %s%s%s%s...%s", ColorBold, ColorCyan, cfg.Prefix, ColorDim, ColorReset)
	}
	c.printf(" %s(1/%s)%s", ColorDim, FormatNumber(difficulty), ColorReset)
	if cfg.MaxAttempts > 0 {
		c.printf(" %scap %s%s", ColorDim, FormatNumber(cfg.MaxAttempts), ColorReset)
	}
	c.printf("\n\n")
}

// PrintProgress shows animated progress bar
func (c *Console) PrintProgress(stats generator.Stats, difficulty uint64, frame int) {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	c.printf("\r    %s%s%s %s%s%s %s%s%s │ %s%s%s │ %s",
		ColorCyan, spinner, ColorReset,
		ColorDim, ProgressBar(stats.Attempts, difficulty, 40), ColorReset,
		ColorGreen+ColorBold, FormatHashRate(stats.HashRate), ColorReset,
		ColorYellow, FormatNumber(stats.Attempts), ColorReset,
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))))
}

// ProgressBar renders the probability that a match has been found by now,
// given the expected number of attempts.
func ProgressBar(attempts, difficulty uint64, width int) string {
	diff := float64(difficulty)
	if diff == 0 {
		diff = 1
	}
	progress := 1.0 - math.Pow(0.5, 2.0*float64(attempts)/diff)

	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

// PrintSuccess shows the found address. The secret is printed only when
// showSecret is set.
func (c *Console) PrintSuccess(result generator.Result, outputFile string, showSecret bool) {
	c.printf("\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
	c.printf("    %s%s║               ✨ ADDRESS FOUND! ✨                       ║%s\n", ColorGreen, ColorBold, ColorReset)
	c.printf("    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)

	c.printf("    %s◎ SOLANA ADDRESS%s\n\n", ColorCyan+ColorBold, ColorReset)
	c.printf("       %s%s%s%s\n\n", ColorGreen, ColorBold, result.Address, ColorReset)

	if showSecret {
		c.printf("    %s🔑 SECRET KEY (base58)%s\n", ColorPurple+ColorBold, ColorReset)
		c.printf("       %s%s%s\n\n", ColorYellow, result.Keypair.SecretBase58(), ColorReset)
	}

	saved := outputFile
	if saved == "" {
		saved = "not saved"
	}
	c.printf("    %s⏱   %s%s   %s│   %s📊  %s%s   %s│   %s💾  %s%s%s\n\n",
		ColorCyan, ColorReset+ColorBold, FormatDuration(result.Elapsed),
		ColorDim,
		ColorPurple, ColorReset+ColorBold, FormatNumber(result.Attempts),
		ColorDim,
		ColorYellow, ColorReset+ColorBold, saved,
		ColorReset)
	if showSecret || outputFile != "" {
		c.printf("    %s%s⚠  KEEP YOUR SECRET KEY SECRET!%s\n", ColorRed, ColorBold, ColorReset)
	}
}

// PrintExhausted reports a capped search that found nothing.
func (c *Console) PrintExhausted(attempts uint64) {
	c.printf("\n    %s✗ No match after %s attempts. Try a shorter prefix.%s\n", ColorYellow, FormatNumber(attempts), ColorReset)
}

// PrintMintReceipt shows the result of a create-token flow.
func (c *Console) PrintMintReceipt(r *service.Receipt) {
	c.printf("\n    %s%s✓ TOKEN CREATED%s\n\n", ColorGreen, ColorBold, ColorReset)
	c.printf("    %sMint%s        %s%s%s\n", ColorCyan, ColorReset, ColorBold, r.MintAddress, ColorReset)
	c.printf("    %sSignature%s   %s\n", ColorCyan, ColorReset, r.Signature)
	c.printf("    %sSupply%s      %s raw units (%d decimals)\n", ColorCyan, ColorReset, FormatNumber(r.Amount), r.Decimals)
	c.printf("    %sSearch%s      %s attempts in %s\n", ColorCyan, ColorReset, FormatNumber(r.SearchAttempts), FormatDuration(r.SearchElapsed))
	c.printf("    %sSubmit%s      %d attempt(s)\n", ColorCyan, ColorReset, r.SubmitAttempts)
	c.printf("    %sMetadata%s    %s\n\n", ColorCyan, ColorReset, r.MetadataURI)
	c.printf("    %s%s%s\n", ColorDim, r.TxURL, ColorReset)
	c.printf("    %s%s%s\n", ColorDim, r.MintURL, ColorReset)
}

// PrintError shows a one-line error.
func (c *Console) PrintError(msg string) {
	c.printf("\n    %s⚠ %s%s\n", ColorRed, msg, ColorReset)
}

// ClearLine clears the current line
func (c *Console) ClearLine() {
	c.printf("\r%s\r", strings.Repeat(" ", 94))
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
