package redstone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	src := "preamble\n" +
		"/* @ui */\nbody\n\tp hi\n" +
		"/* @client */\nvar a = 1;\n" +
		"/* @css */\np { color: red; }\n" +
		"/* @server */\nfunction s() {}\n" +
		"/* @client */\nvar b = 2;\n" +
		"/* @settings */\nserver_port: 4000\n"

	got := Split(src)
	assert.Equal(t, []string{"preamble\n"}, got.Unknown)
	assert.Equal(t, []string{"\nbody\n\tp hi\n"}, got.UI)
	assert.Equal(t, []string{"\nvar a = 1;\n", "\nvar b = 2;\n"}, got.Client)
	assert.Equal(t, []string{"\nfunction s() {}\n"}, got.Server)
	assert.Equal(t, []string{"\nserver_port: 4000\n"}, got.Settings)
	assert.Equal(t, "p { color: red; }", got.CSSSource())
	assert.Equal(t, "body\n\tp hi\n", got.UISource())
}

func TestSplitWithoutMarkers(t *testing.T) {
	got := Split("body\n\tp hi")
	assert.Equal(t, []string{"body\n\tp hi"}, got.UI)
	assert.Empty(t, got.Unknown)
	assert.Empty(t, got.Client)
}

func TestSplitIgnoresBlankPreamble(t *testing.T) {
	got := Split("\n\n/* @ui */\nbody")
	assert.Empty(t, got.Unknown)
	assert.Equal(t, "body", got.UISource())
}

func TestSplitJoinsUIChunks(t *testing.T) {
	got := Split("/* @ui */\nhead\n/* @client */\nvar x;\n/* @ui */\nbody\n")
	assert.Equal(t, "head\n\nbody\n", got.UISource())
}
