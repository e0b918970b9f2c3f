package bus

import "strings"

// MatchTopic evalúa una clave contra un patrón de binding de exchange de tópicos:
// '*' sustituye exactamente una palabra y '#' cero o más.
func MatchTopic(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(p, k []string) bool {
	for len(p) > 0 {
		switch p[0] {
		case "#":
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(k); i++ {
				if matchWords(p[1:], k[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(k) == 0 {
				return false
			}
		default:
			if len(k) == 0 || k[0] != p[0] {
				return false
			}
		}
		p, k = p[1:], k[1:]
	}
	return len(k) == 0
}

func matchAny(patterns []string, key string) bool {
	for _, p := range patterns {
		if MatchTopic(p, key) {
			return true
		}
	}
	return false
}
