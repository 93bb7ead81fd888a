package heap

import (
	"fmt"
	"strings"
)

// Inspect renders v. Objects already being printed render as [...] or {...}
// so self-referencing containers terminate.
func Inspect(v Value) string {
	var sb strings.Builder
	inspect(&sb, v, make(map[*Object]bool))
	return sb.String()
}

func inspect(sb *strings.Builder, v Value, active map[*Object]bool) {
	switch v.Kind {
	case KRef:
		obj := v.Object()
		if obj == nil {
			sb.WriteString("nil")
			return
		}
		if active[obj] {
			if obj.Kind == Hash {
				sb.WriteString("{...}")
			} else {
				sb.WriteString("[...]")
			}
			return
		}
		active[obj] = true
		defer delete(active, obj)
		inspectObject(sb, obj, active)
	case KWeak:
		if v.Weak == nil || v.Weak.StrongCount() == 0 {
			sb.WriteString("#<weak dead>")
			return
		}
		up := v.Weak.Upgrade()
		if !up.Ok {
			sb.WriteString("#<weak dead>")
			return
		}
		obj := *up.Value.Deref()
		fmt.Fprintf(sb, "#<weak %s#%d>", obj.Kind, obj.ID)
		up.Value.Drop()
	default:
		sb.WriteString(v.String())
	}
}

func inspectObject(sb *strings.Builder, obj *Object, active map[*Object]bool) {
	if obj.Kind == Hash {
		sb.WriteByte('{')
		for i, k := range obj.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q => ", k)
			inspect(sb, obj.fields[k], active)
		}
		sb.WriteByte('}')
		return
	}
	sb.WriteByte('[')
	for i, e := range obj.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		inspect(sb, e, active)
	}
	sb.WriteByte(']')
}
