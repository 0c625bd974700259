package internal

import (
	"fmt"
	"log/slog"

	"github.com/m1gwings/treedrawer/tree"
)

// DebugMode gates the warnings emitted for misuse that isn't worth
// failing on in production (double Stop, write to a setter-less Derived,
// EndBatch underflow) — silent by default, loud when a consumer is
// debugging their graph. Spec §7 "Error handling is deliberately
// permissive outside of genuine programmer error."
var DebugMode = false

// Logger is the slog sink used by warnf. Replaceable by a
// consumer the way the teacher wires its own handlers.
var Logger = slog.Default()

func warnf(format string, args ...any) {
	if !DebugMode {
		return
	}
	Logger.Warn(fmt.Sprintf(format, args...))
}

// DumpGraph renders the dependency chain reachable from node as a tree,
// depth first, labeled with each node's kind and flags. Cycles are broken
// at the first repeat visit. Intended for debug logging only — never
// called from a non-debug code path. Grounded on the teacher corpus's
// treedrawer-based dependency visualizer.
func DumpGraph(root Node, label func(Node) string) string {
	if label == nil {
		label = defaultLabel
	}
	t := tree.NewTree(tree.NodeString(label(root)))
	buildDepTree(t, root, label, map[Node]bool{root: true})
	return t.String()
}

func buildDepTree(parent *tree.Tree, n Node, label func(Node) string, visited map[Node]bool) {
	h := n.head()
	for l := h.depHead; l != nil; l = l.nextDep {
		dep := l.dep
		text := label(dep)
		if visited[dep] {
			parent.AddChild(tree.NodeString(text + " (cycle)"))
			continue
		}
		visited[dep] = true
		child := parent.AddChild(tree.NodeString(text))
		buildDepTree(child, dep, label, visited)
	}
}

func defaultLabel(n Node) string {
	h := n.head()
	switch n.(type) {
	case *Source:
		return fmt.Sprintf("Source(%s)", h.Flags)
	case *Derived:
		return fmt.Sprintf("Derived(%s)", h.Flags)
	case *Observer:
		return fmt.Sprintf("Observer(%s)", h.Flags)
	default:
		return fmt.Sprintf("Node(%s)", h.Flags)
	}
}
