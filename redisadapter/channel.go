package redisadapter

import "strings"

// DefaultPrefix is the channel prefix used when Config.Prefix is empty.
const DefaultPrefix = "socket.io"

const delimiter = "#"

// namespaceChannel returns prefix#nsp#, the channel for namespace-wide
// broadcasts. Room channels extend it as prefix#nsp#room#. Namespace and
// room names must not contain '#'.
func namespaceChannel(prefix, nsp string) string {
	return prefix + delimiter + nsp + delimiter
}

func roomChannel(prefix, nsp, room string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(nsp) + len(room) + 3*len(delimiter))
	b.WriteString(prefix)
	b.WriteString(delimiter)
	b.WriteString(nsp)
	b.WriteString(delimiter)
	b.WriteString(room)
	b.WriteString(delimiter)
	return b.String()
}
