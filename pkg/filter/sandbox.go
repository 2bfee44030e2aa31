package filter

import (
	"fmt"

	"github.com/dop251/goja"
)

// sandbox applies security restrictions to a script VM before user code runs.
type sandbox struct {
	securityLevel string
}

func newSandbox(config Config) *sandbox {
	return &sandbox{securityLevel: config.SecurityLevel}
}

// apply removes host-environment globals and, outside permissive mode,
// freezes the built-in objects so scripts cannot tamper with them.
func (s *sandbox) apply(vm *goja.Runtime) error {
	if err := s.removeDangerousGlobals(vm); err != nil {
		return fmt.Errorf("failed to remove dangerous globals: %w", err)
	}
	if err := s.freezeBuiltins(vm); err != nil {
		return fmt.Errorf("failed to freeze built-ins: %w", err)
	}
	return nil
}

func (s *sandbox) removeDangerousGlobals(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"__dirname",
		"__filename",
		"Buffer",
		"setImmediate",
		"clearImmediate",
	}

	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	if s.securityLevel == SecurityLevelStrict {
		restrictedEval := func(call goja.FunctionCall) goja.Value {
			panic(vm.NewGoError(NewScriptError("eval is not allowed in strict security mode", nil)))
		}
		if err := vm.Set("eval", restrictedEval); err != nil {
			return fmt.Errorf("failed to restrict eval: %w", err)
		}
	}

	return nil
}

func (s *sandbox) freezeBuiltins(vm *goja.Runtime) error {
	if s.securityLevel == SecurityLevelPermissive {
		return nil
	}

	builtins := []string{
		"Object",
		"Array",
		"Function",
		"String",
		"Number",
		"Boolean",
		"Date",
		"RegExp",
		"Error",
		"Math",
	}

	freezeScript := `
		(function() {
			function freezeObject(obj) {
				if (obj && typeof obj === 'object') {
					Object.freeze(obj);
					if (obj.prototype) {
						Object.freeze(obj.prototype);
					}
				}
			}
			return freezeObject;
		})()
	`

	val, err := vm.RunString(freezeScript)
	if err != nil {
		return fmt.Errorf("failed to create freeze function: %w", err)
	}

	freezeFn, ok := goja.AssertFunction(val)
	if !ok {
		return fmt.Errorf("freeze function is not a function")
	}

	for _, name := range builtins {
		obj := vm.Get(name)
		if obj != nil && obj != goja.Undefined() {
			if _, err := freezeFn(goja.Undefined(), obj); err != nil {
				// Non-fatal, continue with the remaining builtins
				continue
			}
		}
	}

	return nil
}
