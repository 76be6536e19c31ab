package sshconfig

import (
	"sort"
	"strings"
)

// hostAliasPrefix is the host prefix every managed block uses.
const hostAliasPrefix = "github.com-"

// Block is a managed Host block found in the config text.
type Block struct {
	Alias        string
	HostName     string
	User         string
	IdentityFile string

	// Line indices into Config.Lines: the Host line and the exclusive end
	// of the block.
	HostLine int
	End      int
}

// Config is parsed config text: the raw lines plus an index of the
// managed blocks, in file order.
type Config struct {
	Lines  []string
	Blocks []Block

	trailingNewline bool
}

// HostAlias returns the SSH host alias for an account.
func HostAlias(alias string) string {
	return hostAliasPrefix + alias
}

// Marker returns the comment line written above an account's block.
func Marker(alias string) string {
	return "# " + alias + " account"
}

// FormatBlock renders the block for alias, without the leading marker.
func FormatBlock(alias, keyPath string) string {
	return "Host " + HostAlias(alias) + "\n" +
		"    HostName github.com\n" +
		"    User git\n" +
		"    IdentityFile " + keyPath + "\n"
}

// Parse splits text into lines and indexes the managed blocks.
// CRLF line endings are kept in Lines; matching ignores them.
func Parse(text string) *Config {
	c := &Config{trailingNewline: strings.HasSuffix(text, "\n")}
	if text == "" {
		return c
	}
	c.Lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	for i := 0; i < len(c.Lines); i++ {
		alias, ok := managedAlias(c.Lines[i])
		if !ok {
			continue
		}
		b := Block{Alias: alias, HostLine: i, End: nextHost(c.Lines, i+1)}
		for _, line := range c.Lines[i+1 : b.End] {
			key, value := keyword(line)
			switch key {
			case "hostname":
				b.HostName = value
			case "user":
				b.User = value
			case "identityfile":
				b.IdentityFile = value
			}
		}
		c.Blocks = append(c.Blocks, b)
		i = b.End - 1
	}
	return c
}

// String reassembles the text. Parse(text).String() == text.
func (c *Config) String() string {
	if len(c.Lines) == 0 {
		return ""
	}
	s := strings.Join(c.Lines, "\n")
	if c.trailingNewline {
		s += "\n"
	}
	return s
}

// Lookup returns the first block for alias.
func (c *Config) Lookup(alias string) (Block, bool) {
	for _, b := range c.Blocks {
		if b.Alias == alias {
			return b, true
		}
	}
	return Block{}, false
}

// Aliases returns the aliases of all managed blocks, sorted.
func (c *Config) Aliases() []string {
	seen := make(map[string]bool, len(c.Blocks))
	aliases := make([]string, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		if !seen[b.Alias] {
			seen[b.Alias] = true
			aliases = append(aliases, b.Alias)
		}
	}
	sort.Strings(aliases)
	return aliases
}

// HasBlock reports whether text contains a managed block for alias.
func HasBlock(text, alias string) bool {
	_, ok := Parse(text).Lookup(alias)
	return ok
}

// UpsertBlock replaces any block for alias with a freshly formatted one
// appended at the end of the text. Applying it twice gives the same text.
func UpsertBlock(text, alias, keyPath string) string {
	text = RemoveBlock(text, alias)
	if text == "" {
		return Marker(alias) + "\n" + FormatBlock(alias, keyPath)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + "\n" + Marker(alias) + "\n" + FormatBlock(alias, keyPath)
}

// RemoveBlock deletes every block for alias together with its marker
// comment and the blank line above the marker. Comments and blank lines
// directly above the next Host line stay with that host.
func RemoveBlock(text, alias string) string {
	c := Parse(text)

	var blocks []Block
	for _, b := range c.Blocks {
		if b.Alias == alias {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		return text
	}

	lines := c.Lines
	// Back to front so earlier indices stay valid.
	for i := len(blocks) - 1; i >= 0; i-- {
		start, end := removalExtent(lines, blocks[i], alias)
		lines = append(lines[:start:start], lines[end:]...)
	}

	out := &Config{Lines: lines, trailingNewline: c.trailingNewline}
	return out.String()
}

// FindAliasForKey returns the alias whose block names keyPath as its
// IdentityFile.
func FindAliasForKey(text, keyPath string) (string, bool) {
	for _, b := range Parse(text).Blocks {
		if b.IdentityFile == keyPath {
			return b.Alias, true
		}
	}
	return "", false
}

func removalExtent(lines []string, b Block, alias string) (start, end int) {
	start = b.HostLine
	if start > 0 && strings.TrimSpace(lines[start-1]) == Marker(alias) {
		start--
		if start > 0 && strings.TrimSpace(lines[start-1]) == "" {
			start--
		}
	}

	end = b.End
	if end < len(lines) {
		for end-1 > b.HostLine && isBlankOrComment(lines[end-1]) {
			end--
		}
	}
	return start, end
}

func managedAlias(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	alias, ok := strings.CutPrefix(trimmed, "Host "+hostAliasPrefix)
	if !ok || alias == "" || strings.ContainsAny(alias, " \t") {
		return "", false
	}
	return alias, true
}

func nextHost(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "Host ") {
			return i
		}
	}
	return len(lines)
}

func isBlankOrComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// keyword splits "Key value" or "Key=value" and lower-cases the key.
func keyword(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", ""
	}
	idx := strings.IndexAny(trimmed, " \t=")
	if idx < 0 {
		return strings.ToLower(trimmed), ""
	}
	key := strings.ToLower(trimmed[:idx])
	value := strings.TrimSpace(trimmed[idx:])
	value = strings.TrimSpace(strings.TrimPrefix(value, "="))
	value = strings.Trim(value, `"`)
	return key, value
}
