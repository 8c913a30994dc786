package prompts

import "strings"

// Format substitutes {name} placeholders in tmpl. "{{" and "}}" produce
// literal braces; placeholders without a value are left as they are.
func Format(tmpl string, vars map[string]string) string {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				sb.WriteString(tmpl[i:])
				return sb.String()
			}
			key := tmpl[i+1 : i+1+end]
			if v, ok := vars[strings.TrimSpace(key)]; ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(tmpl[i : i+2+end])
			}
			i += end + 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
