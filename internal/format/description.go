// Package format turns decoded events into display text.
package format

import (
	"regexp"
	"strings"
)

// A "word" is one or more Unicode letters, digits or underscores.
var (
	closingTagRE    = regexp.MustCompile(`</[\p{L}\p{N}_]+>`)
	openingTagRE    = regexp.MustCompile(`<[\p{L}\p{N}_]+>`)
	commaRunRE      = regexp.MustCompile(`,{2,}`)
	trailingCommaRE = regexp.MustCompile(`[\s\p{Z}]*,[\s\p{Z}]*$`)
)

// Description strips simple markup from a description and tidies the
// punctuation left behind. The steps run in a fixed order; later steps
// clean up what earlier ones leave:
//
//  1. </word> becomes ", "
//  2. <word> is removed
//  3. " ," becomes ","
//  4. runs of commas collapse to one
//  5. ":," becomes ":"
//  6. a trailing comma (with surrounding Unicode whitespace) is removed
func Description(text string) string {
	s := closingTagRE.ReplaceAllString(text, ", ")
	s = openingTagRE.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ,", ",")
	s = commaRunRE.ReplaceAllString(s, ",")
	s = strings.ReplaceAll(s, ":,", ":")
	s = trailingCommaRE.ReplaceAllString(s, "")
	return s
}
