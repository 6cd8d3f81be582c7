package events

import "strings"

// Match reports whether a dot-separated topic matches pattern. "*" matches
// exactly one segment and a trailing ">" matches one or more.
func Match(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}
