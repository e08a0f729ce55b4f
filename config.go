package kuroko

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config is Kuroko's typed, string-keyed settings map (§10 ambient
// config). Grounded verbatim on the teacher's config.go Config
// map[string]*cfgVal pattern (bool/int/string variants with a panic-on-
// mismatch type check), generalized from grammar-compiler toggles to
// VM tuning knobs (GC logging, module search path, recursion limit).
type Config map[string]*cfgVal

// envDefaults is populated from the process environment via
// github.com/caarlos0/env (KUROKO_* variables), then copied into a
// fresh Config's defaults by NewConfig — the same "env overrides a
// struct of defaults" shape mna-nenuphar uses for its own settings.
type envDefaults struct {
	LogGC         bool   `env:"KUROKO_LOG_GC" envDefault:"false"`
	RecursionMax  int    `env:"KUROKO_RECURSION_LIMIT" envDefault:"1000"`
	ModulePath    string `env:"KUROKO_MODULE_PATH" envDefault:""`
	Optimize      int    `env:"KUROKO_OPTIMIZE" envDefault:"1"`
	GCStress      bool   `env:"KUROKO_GC_STRESS" envDefault:"false"`
	GCGrowFactor  int    `env:"KUROKO_GC_GROW_FACTOR" envDefault:"2"`
	ConstantFold  bool   `env:"KUROKO_CONSTANT_FOLD" envDefault:"true"`
}

// NewConfig creates a configuration object primed with defaults,
// overridable by KUROKO_* environment variables before any explicit
// SetBool/SetInt/SetString call from the embedder takes precedence.
func NewConfig() *Config {
	var envCfg envDefaults
	_ = env.Parse(&envCfg) // malformed env vars fall back to struct defaults

	m := make(Config)
	m.SetBool("vm.log_gc", envCfg.LogGC)
	m.SetInt("vm.recursion_limit", envCfg.RecursionMax)
	m.SetString("vm.module_path", envCfg.ModulePath)
	m.SetInt("compiler.optimize", envCfg.Optimize)
	m.SetBool("vm.gc_debug_stress", envCfg.GCStress)
	m.SetInt("vm.gc_grow_factor", envCfg.GCGrowFactor)
	m.SetBool("compiler.constant_fold", envCfg.ConstantFold)
	return &m
}

// LogGC reports whether memory.go's collector should print a summary
// after each cycle.
func (c *Config) LogGC() bool { return c.GetBool("vm.log_gc") }

// GCDebugStress reports whether vm.go's registerObject should collect
// on every single allocation rather than waiting for nextGC, trading
// throughput for maximal bug-surfacing (a dangling-pointer bug shows up
// on the very next allocation instead of waiting for a real threshold).
func (c *Config) GCDebugStress() bool { return c.GetBool("vm.gc_debug_stress") }

// GCGrowFactor is the multiplier memory.go applies to the surviving
// byte count when computing the next collection threshold.
func (c *Config) GCGrowFactor() int { return c.GetInt("vm.gc_grow_factor") }

// RecursionLimit is the maximum live call-frame depth vm_call.go's
// pushClosureFrame allows before raising a recursion error.
func (c *Config) RecursionLimit() int { return c.GetInt("vm.recursion_limit") }

// ConstantFold reports whether the compiler should fold constant
// arithmetic at compile time instead of emitting it as runtime
// opcodes.
func (c *Config) ConstantFold() bool { return c.GetBool("compiler.constant_fold") }

// Optimize is the compiler's optimization level (0 disables constant
// folding regardless of ConstantFold; reserved for future passes).
func (c *Config) Optimize() int { return c.GetInt("compiler.optimize") }

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("string setting `%s` does not exist", path))
}
