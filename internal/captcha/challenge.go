package captcha

import (
	"fmt"
	"math/rand/v2"
)

// Operator is one of the three arithmetic operators a challenge can use.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
)

var operators = [...]Operator{OpAdd, OpSub, OpMul}

// maxAttempts bounds the zero-result regeneration loop. With 30 of the 300
// combinations evaluating to zero, hitting it is practically impossible.
const maxAttempts = 50

// Challenge is a generated arithmetic expression and its answer.
type Challenge struct {
	Left   int
	Op     Operator
	Right  int
	Result int
}

// NewChallenge builds a challenge from explicit operands.
func NewChallenge(left int, op Operator, right int) (Challenge, error) {
	if left < 0 || left > 9 || right < 0 || right > 9 {
		return Challenge{}, fmt.Errorf("captcha: operands must be digits, got %d and %d", left, right)
	}
	c := Challenge{Left: left, Op: op, Right: right}
	switch op {
	case OpAdd:
		c.Result = left + right
	case OpSub:
		c.Result = left - right
	case OpMul:
		c.Result = left * right
	default:
		return Challenge{}, fmt.Errorf("captcha: unknown operator %q", byte(op))
	}
	return c, nil
}

// GenerateChallenge draws random challenges until one has a non-zero result.
func GenerateChallenge(r *rand.Rand) (Challenge, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c, err := NewChallenge(r.IntN(10), operators[r.IntN(len(operators))], r.IntN(10))
		if err != nil {
			return Challenge{}, err
		}
		if c.Result != 0 {
			return c, nil
		}
	}
	return Challenge{}, ErrChallengeExhausted
}

// String returns the visible text, e.g. "7+0=?".
func (c Challenge) String() string {
	return fmt.Sprintf("%d%c%d=?", c.Left, c.Op, c.Right)
}

// Glyphs returns the characters that end up on the image. Only the first
// four characters of the text are drawn, so the trailing "?" never shows.
func (c Challenge) Glyphs() []string {
	s := c.String()
	glyphs := make([]string, 0, glyphCount)
	for i := 0; i < glyphCount && i < len(s); i++ {
		glyphs = append(glyphs, s[i:i+1])
	}
	return glyphs
}
