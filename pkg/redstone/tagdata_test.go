package redstone

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTagline(t *testing.T) {
	tests := []struct {
		in          string
		wantHeader  string
		wantContent string
		wantMode    blockMode
	}{
		{"div", "div", "", modeBlock},
		{"p Hello world", "p", "Hello world", modeBlock},
		{"p.", "p", "", modeText},
		{"pre..", "pre", "", modeExtendedText},
		{"p.lead.", "p.lead", "", modeText},
		{"a[title=two words] link", "a[title=two words]", "link", modeBlock},
		{"p ends with a dot.", "p", "ends with a dot.", modeBlock},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			header, content, mode := parseTagline(tt.in)
			assert.Equal(t, tt.wantHeader, header)
			assert.Equal(t, tt.wantContent, content)
			assert.Equal(t, tt.wantMode, mode)
		})
	}
}

func TestParseTagData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Tag
	}{
		{
			name:     "Bare tag",
			input:    "div",
			expected: &Tag{Name: "div"},
		},
		{
			name:     "ID shorthand",
			input:    "div#main",
			expected: &Tag{Name: "div", ID: "main"},
		},
		{
			name:     "Classes keep order",
			input:    "span.b.a.c",
			expected: &Tag{Name: "span", Classes: []string{"b", "a", "c"}},
		},
		{
			name:  "Mixed tokens",
			input: "input.field#name[type=text][required]",
			expected: &Tag{
				Name:    "input",
				ID:      "name",
				Classes: []string{"field"},
				Attributes: []*Attribute{
					{Name: "type", Value: "text"},
					{Name: "required"},
				},
			},
		},
		{
			name:  "Attribute value keeps punctuation",
			input: "a[href=http://example.com/a.b#c?d=e]",
			expected: &Tag{
				Name:       "a",
				Attributes: []*Attribute{{Name: "href", Value: "http://example.com/a.b#c?d=e"}},
			},
		},
		{
			name:  "Event and exposed attributes",
			input: "input[@keyup=onKey][value={{name}}]",
			expected: &Tag{
				Name: "input",
				Attributes: []*Attribute{
					{Name: "@keyup", Value: "onKey"},
					{Name: "value", Value: "{{name}}"},
				},
			},
		},
		{
			name:     "id and class attributes fold",
			input:    "p[id=intro][class=a b].c",
			expected: &Tag{Name: "p", ID: "intro", Classes: []string{"a", "b", "c"}},
		},
		{
			name:     "Names with digits and dashes",
			input:    "h1.col-2_x",
			expected: &Tag{Name: "h1", Classes: []string{"col-2_x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTagData(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTagDataErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"div#a#b", ErrDuplicateID},
		{"div#a[id=b]", ErrDuplicateID},
		{"a[href=x][href=y]", ErrDuplicateAttribute},
		{"a[href=x", ErrUnterminatedAttribute},
		{"div$", ErrUnknownCharacter},
		{"div.1x", ErrUnknownCharacter},
		{"div[=x]", ErrUnknownCharacter},
		{"div.", ErrTokenOverflow},
		{"div#", ErrTokenOverflow},
		{".cls", ErrMissingTagName},
		{"", ErrMissingTagName},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseTagData(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
