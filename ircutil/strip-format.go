package ircutil

import "regexp"

var formattingRegexp = regexp.MustCompile("[\x1f\x0f\x16\x02]|\x03([0-9]{1,2}(,[0-9]{1,2})?)?")

// StripFormatting removes mIRC-style formatting codes from the text: bold, underline, reverse,
// reset, and colors with their optional foreground and background numbers.
func StripFormatting(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\x1f', '\x0f', '\x16', '\x02', '\x03':
			return formattingRegexp.ReplaceAllString(text, "")
		}
	}

	return text
}
