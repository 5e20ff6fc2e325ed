package provider

import (
	"regexp"
	"strings"
)

const fence = "```"

// langTagRe matches a lowercase language tag directly after an opening fence.
var langTagRe = regexp.MustCompile(`^[a-z]+\n`)

// SplitExplanationAndCode splits raw model output into the prose before the
// first fence and the body of the first fenced block. Later blocks are
// dropped. A tag not followed by a newline stays part of the code.
func SplitExplanationAndCode(raw string) Result {
	parts := strings.Split(raw, fence)

	res := Result{Explanation: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		code := langTagRe.ReplaceAllString(parts[1], "")
		res.Code = strings.TrimSpace(code)
	}
	return res
}
