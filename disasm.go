package kuroko

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/xlab/treeprint"
)

// StdoutIsTerminal reports whether fd 1 looks like an interactive
// terminal (github.com/mattn/go-isatty), the same gate the teacher used
// before printing ANSI escapes to a file or pipe.
func StdoutIsTerminal(fd uintptr) bool { return isatty.IsTerminal(fd) }

// DisassembleFunction renders one function's chunk as a column listing
// (see Chunk.Disassemble), recursing into any nested function constants
// so a single call dumps a whole closure tree.
func DisassembleFunction(fn *Function, colorize bool) string {
	out := fn.Chunk.Disassemble(colorize)
	for _, c := range fn.Chunk.Constants {
		if c.IsObject() {
			if nested, ok := c.AsObject().(*Function); ok {
				out += "\n" + DisassembleFunction(nested, colorize)
			}
		}
	}
	return out
}

// DumpClassTree renders a class's Methods table, and that of each class
// along its Base chain, as a tree via github.com/xlab/treeprint — used
// by the disassembler CLI's `-ast-only`-equivalent `-class` flag. The
// protocol Slots are not shown.
func DumpClassTree(class *Class) string {
	root := treeprint.New()
	root.SetValue(class.Name)
	walkClassChain(root, class)
	return root.String()
}

func walkClassChain(node treeprint.Tree, class *Class) {
	methods := node.AddBranch("methods")
	class.Methods.Each(func(key, value Value) bool {
		methods.AddNode(key.String())
		return true
	})
	if class.Base != nil {
		base := node.AddBranch(fmt.Sprintf("base: %s", class.Base.Name))
		walkClassChain(base, class.Base)
	}
}

// DumpModuleTree renders a module's namespace as a tree, the same shape
// `DumpClassTree` uses for a class's method table.
func DumpModuleTree(mod *Module) string {
	root := treeprint.New()
	root.SetValue(fmt.Sprintf("module %s (%s)", mod.Name, mod.Path))
	mod.Fields.Each(func(key, value Value) bool {
		root.AddNode(fmt.Sprintf("%s = %s", key.String(), value.String()))
		return true
	})
	return root.String()
}

// colorTheme is a small header/error palette; nothing in the package
// reads it.
var colorTheme = struct {
	Header func(a ...interface{}) string
	Error  func(a ...interface{}) string
}{
	Header: color.New(color.FgCyan, color.Bold).SprintFunc(),
	Error:  color.New(color.FgRed, color.Bold).SprintFunc(),
}
