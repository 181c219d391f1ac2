package namespace

import (
	"fmt"
	"io"
	"strings"
)

// DumpTree writes an indented rendering of the whole tree to w, including
// snapshot-retained entries, for debugging and the nsdump tool.
func (ns *Namespace) DumpTree(w io.Writer) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	dumpNode(w, ns.root, 0, false)
	for _, s := range ns.snapshots {
		fmt.Fprintf(w, "%s\n", s)
	}
}

func dumpNode(w io.Writer, n Node, depth int, retained bool) {
	indent := strings.Repeat("  ", depth)
	marker := ""
	if retained {
		marker = " [retained]"
	}
	fmt.Fprintf(w, "%s%s%s\n", indent, n.DetailString(), marker)

	d, err := n.AsDirectory()
	if err != nil {
		return
	}
	for _, child := range d.Children() {
		dumpNode(w, child, depth+1, false)
	}
	if d.diffs != nil {
		for _, del := range d.diffs.allDeleted() {
			dumpNode(w, del, depth+1, true)
		}
	}
}
