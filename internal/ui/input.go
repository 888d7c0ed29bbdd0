package ui

import (
	"strconv"
	"strings"

	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

func (c *Console) readLine() string {
	line, _ := c.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// PromptPrefix asks for the address prefix until a valid one is entered.
// ok is false when input ends.
func (c *Console) PromptPrefix() (prefix string, ok bool) {
	c.printf("    %s🎯 TARGET PREFIX%s\n", ColorPurple+ColorBold, ColorReset)
	for {
		c.printf("    %sPrefix%s (...): ", ColorCyan, ColorReset)
		line, err := c.in.ReadString('\n')
		prefix = strings.TrimSpace(line)
		if prefix == "" {
			if err != nil {
				return "", false
			}
			c.printf("    %s✗ Must specify a prefix!%s\n", ColorRed, ColorReset)
			continue
		}

		if err := solana.ValidatePrefix(prefix); err != nil {
			if bad := solana.InvalidBase58Chars(prefix); len(bad) > 0 {
				c.printf("    %s⚠ Invalid Base58 character(s): %s%s\n", ColorRed, string(bad), ColorReset)
				c.printf("    %s  (Not allowed: 0, O, I, l)%s\n", ColorDim, ColorReset)
			} else {
				c.printf("    %s⚠ %v%s\n", ColorRed, err, ColorReset)
			}
			continue
		}
		return prefix, true
	}
}

// PromptString asks for a free-text value, returning def on an empty line.
func (c *Console) PromptString(label, def string) string {
	if def != "" {
		c.printf("    %s%s%s [%s]: ", ColorCyan, label, ColorReset, def)
	} else {
		c.printf("    %s%s%s: ", ColorCyan, label, ColorReset)
	}
	if v := c.readLine(); v != "" {
		return v
	}
	return def
}

// PromptInt asks for an integer in [min, max], repeating on bad input.
func (c *Console) PromptInt(label string, def, min, max int) int {
	for {
		raw := c.PromptString(label, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err == nil && n >= min && n <= max {
			return n
		}
		c.printf("    %s⚠ Enter a number between %d and %d%s\n", ColorRed, min, max, ColorReset)
	}
}

// AskToContinue prompts user to continue or exit
func (c *Console) AskToContinue() bool {
	c.printf("\n    %s[Enter]%s Continue searching  │  %s[Q]%s Exit\n", ColorGreen, ColorReset, ColorRed, ColorReset)
	c.printf("    %s→%s ", ColorCyan, ColorReset)
	line, err := c.in.ReadString('\n')
	input := strings.TrimSpace(strings.ToLower(line))
	if err != nil && input == "" {
		return false
	}
	return input != "q" && input != "quit" && input != "exit"
}
