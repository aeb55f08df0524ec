// Package source loads meeting packet text and normalizes it so offsets are
// stable across runs.
package source

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

var (
	innerSpacesRe = regexp.MustCompile(` {2,}`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

var artifactReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ",
	"\u200b", "",
	"\t", " ",
)

// Normalize cleans common extraction artifacts while keeping line
// boundaries: line endings are unified, NBSP and tabs become spaces,
// zero-width spaces go, trailing spaces are dropped, space runs after the
// indentation collapse, and three or more newlines become two. The result is
// NFC-composed.
func Normalize(text string) string {
	text = norm.NFC.String(artifactReplacer.Replace(text))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		rest := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(rest)]
		lines[i] = indent + innerSpacesRe.ReplaceAllString(rest, " ")
	}
	return blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}

// ReadTextFile reads a UTF-8 text packet and normalizes it. Invalid byte
// sequences are replaced.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "source: read %s", path)
	}
	return Normalize(strings.ToValidUTF8(string(data), "\uFFFD")), nil
}
