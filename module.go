package kuroko

import (
	"os"
	"path/filepath"
	"strings"
)

// ImportModule resolves, compiles (on first import), and caches a
// dotted module name, returning its Module namespace object (§4.2
// import statement compilation, §9 module search path). Grounded on
// the teacher's grammar_import.go/grammar_import_loaders.go recursive
// file-based import resolution, narrowed from a grammar file's import
// directive to a general `import foo.bar` statement: each dotted
// segment is looked up as `<search-dir>/foo/bar.krk` along
// vm.config's KUROKO_MODULE_PATH list (config.go's envDefaults).
func (vm *VM) ImportModule(dotted string) (*Module, error) {
	if m, ok := vm.modules[dotted]; ok {
		return m, nil
	}
	path, src, err := vm.locateModule(dotted)
	if err != nil {
		return nil, vm.newException(vm.classes.ImportError, err.Error())
	}
	fn, cerr := Compile(vm, src, dotted)
	if cerr != nil {
		return nil, vm.newException(vm.classes.ImportError, cerr.Error())
	}
	mod := fn.Module
	mod.Path = path
	vm.modules[dotted] = mod // registered before running so circular imports see a partial module
	closure := newClosureObj(vm, fn)
	if _, err := vm.CallValue(ObjectValue(closure), nil, nil); err != nil {
		delete(vm.modules, dotted)
		return nil, err
	}
	mod.Loaded = true
	return mod, nil
}

func (vm *VM) modulePaths() []string {
	paths := []string{"."}
	if vm.config != nil {
		if extra := vm.config.GetString("vm.module_path"); extra != "" {
			paths = append(paths, strings.Split(extra, string(os.PathListSeparator))...)
		}
	}
	return paths
}

func (vm *VM) locateModule(dotted string) (path string, source string, err error) {
	rel := filepath.Join(strings.Split(dotted, ".")...) + ".krk"
	for _, dir := range vm.modulePaths() {
		candidate := filepath.Join(dir, rel)
		data, rerr := os.ReadFile(candidate)
		if rerr == nil {
			return candidate, string(data), nil
		}
	}
	return "", "", &moduleNotFoundError{name: dotted}
}

type moduleNotFoundError struct{ name string }

func (e *moduleNotFoundError) Error() string { return "no module named '" + e.name + "'" }

// RegisterNativeModule lets embedders (or builtins.go) install a
// pre-built Module namespace under a name, bypassing file resolution
// entirely (§10 embedding API).
func (vm *VM) RegisterNativeModule(name string, build func(vm *VM, mod *Module)) {
	mod := newModuleObj(vm, name, "<native>")
	build(vm, mod)
	mod.Loaded = true
	vm.modules[name] = mod
}
