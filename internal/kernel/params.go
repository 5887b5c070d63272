package kernel

import "fmt"

// intParam extracts an integer parameter, returning def when it is absent
// and accepting the int/float64 shapes that typed-params coercion (package
// catalog) may hand over.
func intParam(params map[string]any, name string, def int) (int, error) {
	v, ok := params[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("kernel: param %q has unexpected type %T", name, v)
	}
}

func floatParam(params map[string]any, name string, def float64) (float64, error) {
	v, ok := params[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("kernel: param %q has unexpected type %T", name, v)
	}
}

func stringParam(params map[string]any, name, def string) string {
	v, ok := params[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}
