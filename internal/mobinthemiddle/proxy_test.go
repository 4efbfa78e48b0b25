package mobinthemiddle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteReplacesBoguscoinAddresses(t *testing.T) {
	in := "Please pay the sum of 750 Boguscoins to 7iKDZEwPZSqIvDnHvVN2r0hUWXD5rHX"
	out := Rewrite(in)
	require.Equal(t, "Please pay the sum of 750 Boguscoins to "+TonysAddress, out)
}

func TestRewriteLeavesShortOrLongStringsAlone(t *testing.T) {
	in := "7short 7" + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	require.Equal(t, in, Rewrite(in))
}

func TestRewriteChatLineOnlyRewritesMessagePortion(t *testing.T) {
	line := "[alice] send to 7iKDZEwPZSqIvDnHvVN2r0hUWXD5rHX please"
	got := rewriteChatLine(line)
	require.Equal(t, "[alice] send to "+TonysAddress+" please", got)
}

func TestRewriteChatLinePassesThroughNonMessageLines(t *testing.T) {
	line := "* alice has entered the room"
	require.Equal(t, line, rewriteChatLine(line))
}
