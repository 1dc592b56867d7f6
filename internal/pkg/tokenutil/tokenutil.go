package tokenutil

// Estimate approximates the token count of text using the 4-characters-per-
// token heuristic. A real tokenizer can replace this behind the same
// signature without touching callers.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
