package hotkey

import (
	"fmt"
	"strings"
)

// Binding is a parsed key combination such as "Cmd+5".
type Binding struct {
	Modifiers []string
	Key       string
}

func (b Binding) String() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, mod := range b.Modifiers {
		parts = append(parts, modifierLabels[mod])
	}
	return strings.Join(append(parts, b.Key), "+")
}

var modifierAliases = map[string]string{
	"cmd":     "cmd",
	"command": "cmd",
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"opt":     "option",
	"option":  "option",
	"alt":     "option",
}

var modifierLabels = map[string]string{
	"cmd":    "Cmd",
	"ctrl":   "Ctrl",
	"shift":  "Shift",
	"option": "Option",
}

var namedKeys = map[string]string{
	"space":  "Space",
	"return": "Return",
	"enter":  "Return",
	"escape": "Escape",
	"esc":    "Escape",
	"tab":    "Tab",
}

// Parse reads a binding written as modifiers and a key joined by "+".
func Parse(spec string) (Binding, error) {
	parts := strings.Split(spec, "+")
	var binding Binding
	seen := map[string]bool{}

	for i, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			return Binding{}, fmt.Errorf("invalid hotkey %q", spec)
		}
		if i < len(parts)-1 {
			mod, ok := modifierAliases[token]
			if !ok {
				return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", part, spec)
			}
			if !seen[mod] {
				seen[mod] = true
				binding.Modifiers = append(binding.Modifiers, mod)
			}
			continue
		}
		key, err := parseKey(token)
		if err != nil {
			return Binding{}, fmt.Errorf("hotkey %q: %w", spec, err)
		}
		binding.Key = key
	}
	return binding, nil
}

func parseKey(token string) (string, error) {
	if named, ok := namedKeys[token]; ok {
		return named, nil
	}
	if len(token) == 1 {
		c := token[0]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return strings.ToUpper(token), nil
		}
	}
	if strings.HasPrefix(token, "f") {
		var n int
		if _, err := fmt.Sscanf(token[1:], "%d", &n); err == nil && n >= 1 && n <= 20 && fmt.Sprint(n) == token[1:] {
			return "F" + token[1:], nil
		}
	}
	return "", fmt.Errorf("unsupported key %q", token)
}
