// Copyright © 2024 The runcoliru authors

package lsp

import (
	"strings"

	"github.com/luthersystems/runcoliru/annotate"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// lspPosition converts a 1-based line and column to a 0-based position.
func lspPosition(line, col int) protocol.Position {
	return protocol.Position{
		Line:      safeUint(line - 1),
		Character: safeUint(col - 1),
	}
}

// markerRange converts an annotation marker to an LSP range. Marker end
// columns are exclusive, as LSP ends are.
func markerRange(m annotate.Marker) protocol.Range {
	return protocol.Range{
		Start: lspPosition(m.StartLine, m.StartColumn),
		End:   lspPosition(m.EndLine, m.EndColumn),
	}
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}
