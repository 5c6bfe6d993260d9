package ircutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gissleh/ircengine/ircutil"
)

func TestParseArgAndText(t *testing.T) {
	table := []struct {
		Input string
		Arg   string
		Text  string
	}{
		{"#Test Hello, World!", "#Test", "Hello, World!"},
		{"#Test", "#Test", ""},
		{"  Gisle   Psst, over here", "Gisle", "Psst, over here"},
		{"", "", ""},
	}

	for _, row := range table {
		t.Run(row.Input, func(t *testing.T) {
			arg, text := ircutil.ParseArgAndText(row.Input)
			assert.Equal(t, row.Arg, arg)
			assert.Equal(t, row.Text, text)
		})
	}
}
